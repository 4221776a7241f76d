package notifications

import (
	"fmt"
	"html"
)

func OrderPaidEmail(studentName, packageName string, classes, remaining int, orderNumber string) (string, string) {
	subject := "支付成功 Payment received - " + orderNumber
	body := fmt.Sprintf(
		"<h1>Payment received</h1><p>Hi %s,</p><p>Your order <b>%s</b> for <b>%s</b> is paid. %d classes were added to your account; you now have %d classes remaining.</p><p>感谢您选择 Wave Mandarin！</p>",
		html.EscapeString(studentName), html.EscapeString(orderNumber), html.EscapeString(packageName), classes, remaining,
	)
	return subject, body
}

func ClassReminderEmail(studentName, date, start, timezone, teacher string) (string, string) {
	subject := "上课提醒 Reminder: your class starts soon"
	teacherLine := ""
	if teacher != "" {
		teacherLine = fmt.Sprintf("<p><b>Teacher:</b> %s</p>", html.EscapeString(teacher))
	}
	body := fmt.Sprintf(
		"<h1>Class Reminder</h1><p>Hi %s,</p><p>Your class is scheduled for %s at %s (%s).</p>%s",
		html.EscapeString(studentName), date, start, timezone, teacherLine,
	)
	return subject, body
}

func BookingInquiryEmail(name, email, phone, courseID, preferredDate, preferredTime, message string) (string, string) {
	subject := "新的预约咨询 New booking inquiry from " + name
	body := fmt.Sprintf(
		"<h1>New booking inquiry</h1><p><b>Name:</b> %s<br><b>Email:</b> %s<br><b>Phone:</b> %s</p><p><b>Course:</b> %s<br><b>Preferred:</b> %s %s</p><p>%s</p>",
		html.EscapeString(name), html.EscapeString(email), html.EscapeString(phone),
		html.EscapeString(courseID), html.EscapeString(preferredDate), html.EscapeString(preferredTime),
		html.EscapeString(message),
	)
	return subject, body
}
