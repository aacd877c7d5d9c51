package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"instavision/config"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Sender 实际投递邮件的传输层
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender 按 Email.Transport 选择传输方式
func NewSender(cfg config.Email, client *resty.Client, log *slog.Logger) (Sender, error) {
	switch cfg.Transport {
	case "", "smtp":
		return NewSMTPSender(cfg), nil
	case "http":
		if cfg.APIEndpoint == "" {
			return nil, errors.New("email http transport requires EMAIL_API_ENDPOINT")
		}
		return NewAPISender(client, cfg), nil
	case "log":
		return LogSender{log: log}, nil
	default:
		return nil, fmt.Errorf("unsupported email transport %q", cfg.Transport)
	}
}

func fromAddress(cfg config.Email) string {
	if cfg.From != "" {
		return cfg.From
	}
	return cfg.User
}

const defaultSMTPTimeout = 15 * time.Second

// SMTPSender 通过 SMTP 投递，服务器支持时自动 STARTTLS，465 端口直接走 TLS
type SMTPSender struct {
	cfg config.Email
}

func NewSMTPSender(cfg config.Email) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send 整个会话受 ctx 与 Email.Timeout 约束，超时后连接被关闭
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.Host == "" || s.cfg.User == "" || s.cfg.Pass == "" {
		return errors.New("smtp not configured")
	}
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	var dialer net.Dialer
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "dial smtp %s", addr)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}
	// ctx 提前取消时断开连接，阻塞中的读写立即返回
	stop := context.AfterFunc(ctx, func() { _ = raw.Close() })
	defer stop()

	conn := raw
	if s.cfg.Port == "465" {
		conn = tls.Client(raw, &tls.Config{ServerName: s.cfg.Host})
	}
	if err := s.deliver(conn, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Wrap(ctxErr, err.Error())
		}
		return errors.Wrapf(err, "smtp send to %s", msg.To)
	}
	return nil
}

func (s *SMTPSender) deliver(conn net.Conn, msg Message) error {
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if _, isTLS := conn.(*tls.Conn); !isTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return err
			}
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)); err != nil {
			return err
		}
	}

	from := fromAddress(s.cfg)
	if err := c.Mail(from); err != nil {
		return err
	}
	if err := c.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMIME(from, msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + mime.QEncoding.Encode("utf-8", brandName) + " <" + from + ">\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// APISender 通过 HTTP 邮件网关投递
type APISender struct {
	client *resty.Client
	cfg    config.Email
}

func NewAPISender(client *resty.Client, cfg config.Email) *APISender {
	return &APISender{client: client, cfg: cfg}
}

type apiMailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func (s *APISender) Send(ctx context.Context, msg Message) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.cfg.APIKey).
		SetBody(apiMailRequest{
			From:    fromAddress(s.cfg),
			To:      msg.To,
			Subject: msg.Subject,
			Text:    msg.Body,
		}).
		Post(s.cfg.APIEndpoint)
	if err != nil {
		return errors.Wrapf(err, "mail api send to %s", msg.To)
	}
	if resp.IsError() {
		return errors.Errorf("mail api responded %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// LogSender 只记录日志，本地开发用
type LogSender struct {
	log *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("邮件未实际发送", "to", msg.To, "subject", msg.Subject)
	return nil
}
