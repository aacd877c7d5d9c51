package mail

import (
	"fmt"
	"strings"
)

const brandName = "InstaVision"

// Message 纯文本邮件
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// RegistrationMessage 新账号通知，包含明文初始密码
func RegistrationMessage(to, fullName, password, regNo, frontendURL string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s!\n\n", fullName)
	fmt.Fprintf(&b, "Your account has been successfully registered with %s. Below are your login credentials:\n\n", brandName)
	fmt.Fprintf(&b, "Registration Number: %s\n", regNo)
	fmt.Fprintf(&b, "Email: %s\n", to)
	fmt.Fprintf(&b, "Password: %s\n\n", password)
	b.WriteString("Important: Please change your password after your first login for security purposes.\n\n")
	fmt.Fprintf(&b, "Login to your account: %s\n", loginURL(frontendURL))
	return Message{
		To:      to,
		Subject: "Welcome to " + brandName + " - Your Account Details",
		Body:    b.String(),
	}
}

// PasswordResetMessage 管理员重置密码后的通知
func PasswordResetMessage(to, fullName, password, frontendURL string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s!\n\n", fullName)
	b.WriteString("Your password has been successfully reset. Here are your new login credentials:\n\n")
	fmt.Fprintf(&b, "Email: %s\n", to)
	fmt.Fprintf(&b, "New Password: %s\n\n", password)
	b.WriteString("Security Note: Please change your password after logging in for better security.\n\n")
	fmt.Fprintf(&b, "Login with your new password: %s\n", loginURL(frontendURL))
	return Message{
		To:      to,
		Subject: brandName + " - Password Reset",
		Body:    b.String(),
	}
}

func loginURL(frontendURL string) string {
	return strings.TrimRight(frontendURL, "/") + "/login"
}
