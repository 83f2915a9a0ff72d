package mailer

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
)

// Mailer 基于数据库模板的事务邮件发送器
type Mailer struct {
	cfg *config.Config
	db  database.CRMDatabase
}

// NewMailer 创建邮件发送器
func NewMailer(cfg *config.Config, db database.CRMDatabase) *Mailer {
	return &Mailer{cfg: cfg, db: db}
}

// render 渲染模板字符串，data 中的键以 {{.key}} 引用
func render(name, text string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// SendTemplate looks up the mail template registered for templateType,
// renders subject and body with data, and sends the message over SMTP.
func (m *Mailer) SendTemplate(templateType, to string, data map[string]interface{}) error {
	if !m.cfg.HasSMTP() {
		return fmt.Errorf("SMTP is not configured")
	}

	tpl, err := m.db.GetMailTemplateByType(templateType)
	if err != nil {
		return fmt.Errorf("failed to load mail template %s: %w", templateType, err)
	}

	subject, err := render("subject", tpl.Subject, data)
	if err != nil {
		return err
	}
	body, err := render("body", tpl.Template, data)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.EmailFrom)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	dialer := gomail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.SMTPUser, m.cfg.SMTPPass)
	dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true}

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	fmt.Printf("📧 Mail sent: type=%s, to=%s\n", templateType, to)
	return nil
}
