package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"hydrofix/backend/config"
)

// Sender 客户通知邮件接口
// 发送失败只记日志，绝不影响工单主流程
type Sender interface {
	SendOrderConfirmation(recipient, orderID string) error
	SendOrderCompleted(recipient, orderID string) error
	SendOrderRejection(recipient, orderID string) error
}

// NewSender 根据配置创建邮件发送器；未启用时返回空实现
func NewSender(cfg *config.MailConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled {
		logger.Info("邮件通知未启用，使用空实现")
		return &noopSender{logger: logger}
	}
	return &smtpSender{cfg: cfg, logger: logger}
}

// ── SMTP 实现 ──

type smtpSender struct {
	cfg    *config.MailConfig
	logger *zap.Logger
}

func (s *smtpSender) send(recipient, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + recipient,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	s.logger.Info("邮件已发送",
		zap.String("recipient", recipient),
		zap.String("subject", subject))
	return nil
}

func (s *smtpSender) SendOrderConfirmation(recipient, orderID string) error {
	subject := "维修工单已受理"
	body := fmt.Sprintf(
		"您好！\n\n您的维修工单已受理，工单号：%s。\n师傅确认上门时间后会与您电话联系。\n\n感谢您的信任。",
		orderID)
	return s.send(recipient, subject, body)
}

func (s *smtpSender) SendOrderCompleted(recipient, orderID string) error {
	subject := fmt.Sprintf("维修已完成 - %s", orderID)
	body := fmt.Sprintf(
		"您好！\n\n工单号 %s 的维修已完成。\n如对服务有任何问题，请回复本邮件与我们联系。\n\n感谢您的信任。",
		orderID)
	return s.send(recipient, subject, body)
}

func (s *smtpSender) SendOrderRejection(recipient, orderID string) error {
	subject := fmt.Sprintf("维修工单已取消 - %s", orderID)
	body := fmt.Sprintf(
		"您好！\n\n很抱歉，工单号 %s 的维修请求已被取消。\n如有疑问请回复本邮件与我们联系。",
		orderID)
	return s.send(recipient, subject, body)
}

// ── 空实现 ──

type noopSender struct {
	logger *zap.Logger
}

func (n *noopSender) SendOrderConfirmation(recipient, orderID string) error {
	n.logger.Debug("跳过确认邮件", zap.String("order_id", orderID))
	return nil
}

func (n *noopSender) SendOrderCompleted(recipient, orderID string) error {
	n.logger.Debug("跳过完工邮件", zap.String("order_id", orderID))
	return nil
}

func (n *noopSender) SendOrderRejection(recipient, orderID string) error {
	n.logger.Debug("跳过取消邮件", zap.String("order_id", orderID))
	return nil
}
