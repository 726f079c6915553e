package orchestrator

import "fmt"

// maxSnippetRunes bounds the excerpt stored on an alert so arbitrarily long
// messages are never persisted verbatim.
const maxSnippetRunes = 500

// greetingContent opens every conversation. It is flagged is_greeting and
// never enters the model context.
const greetingContent = "Xin chào! Mình là Trợ Lý Học Đường AI, ở đây để lắng nghe và hỗ trợ bạn. " +
	"Hãy hỏi mình về học tập, nghề nghiệp, cảm xúc hoặc những khó khăn bạn gặp nhé! 😊\n\n" +
	"Lưu ý: Mình chỉ là AI hỗ trợ, không thay thế chuyên gia tâm lý. " +
	"Nếu bạn đang gặp khủng hoảng, hãy liên hệ ngay với người lớn tin cậy hoặc đường dây nóng hỗ trợ."

const emergencyContacts = `- Đường dây nóng ABC: [SỐ ĐIỆN THOẠI]
- Tư vấn viên trường XYZ: [THÔNG TIN LIÊN HỆ]
- Hoặc nói chuyện ngay với thầy/cô/người lớn mà bạn tin tưởng nhất.`

// fallbackApology is returned when the language model cannot be reached.
const fallbackApology = "Xin lỗi, Trợ Lý AI hiện không thể phản hồi. Vui lòng thử lại sau."

// emergencyResponse is the canned safety message for a detected risk
// category. The language model is never consulted for it.
func emergencyResponse(category string) string {
	return fmt.Sprintf(
		"Mình nhận thấy bạn đang đề cập đến một vấn đề rất nghiêm trọng (%s). "+
			"Sự an toàn của bạn là quan trọng nhất lúc này. "+
			"Mình là AI và không thể thay thế sự hỗ trợ trực tiếp từ chuyên gia. "+
			"Vui lòng liên hệ ngay các nguồn trợ giúp sau đây nhé:\n%s",
		category, emergencyContacts)
}

func alertReason(category string) string {
	return fmt.Sprintf("Phát hiện rủi ro: %s", category)
}

func snippet(text string) string {
	r := []rune(text)
	if len(r) <= maxSnippetRunes {
		return text
	}
	return string(r[:maxSnippetRunes])
}
