package model

// TruncateString giới hạn chuỗi theo độ dài cột varchar tương ứng để
// các trường text từ payload không làm hỏng câu insert.
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength]
}
