package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/smtp"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/models"
)

// EmailCodes issues and verifies email verification codes. Codes live in
// memory with a TTL; when email delivery is disabled every check passes so
// local setups work without a relay.
type EmailCodes struct {
	mu    sync.Mutex
	codes map[string]issuedCode
}

type issuedCode struct {
	code     models.EmailCodeValue
	issuedAt time.Time
}

var Email = &EmailCodes{codes: make(map[string]issuedCode)}

var (
	ErrCoolDown = fmt.Errorf("code recently sent")
	ErrSendMail = fmt.Errorf("send mail failed")
)

// SendCode generates a fresh code for the address and delivers it via the
// configured relay. A second request within the cooldown window is refused.
func (e *EmailCodes) SendCode(addr string) error {
	cfg := &config.Get().Email
	if !cfg.Enable {
		return nil
	}

	e.mu.Lock()
	if issued, ok := e.codes[addr]; ok {
		if time.Since(issued.issuedAt) < time.Duration(cfg.CoolDownSec)*time.Second {
			e.mu.Unlock()
			return ErrCoolDown
		}
	}
	code := generateCode(cfg.EmailCodeLen)
	e.codes[addr] = issuedCode{code: code, issuedAt: time.Now()}
	e.mu.Unlock()

	body := fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: Verification Code\r\n\r\nYour verification code is %0*d. It expires in %d seconds.\r\n",
		cfg.FromName, cfg.From, addr, cfg.EmailCodeLen, code, cfg.ValidTimeSec,
	)
	auth := smtp.PlainAuth("", cfg.RelayUserName, cfg.RelayPassword, cfg.Relay)
	if err := smtp.SendMail(cfg.Relay+":587", auth, cfg.From, []string{addr}, []byte(body)); err != nil {
		logrus.WithError(err).WithField("addr", addr).Error("send verification code failed")
		return ErrSendMail
	}
	return nil
}

// CheckAndConsume verifies a code and removes it on match. Expired codes
// never match. Always true when email delivery is disabled.
func (e *EmailCodes) CheckAndConsume(addr string, code models.EmailCodeValue) bool {
	cfg := &config.Get().Email
	if !cfg.Enable {
		return true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	issued, ok := e.codes[addr]
	if !ok {
		return false
	}
	if time.Since(issued.issuedAt) > time.Duration(cfg.ValidTimeSec)*time.Second {
		delete(e.codes, addr)
		return false
	}
	if issued.code != code {
		return false
	}
	delete(e.codes, addr)
	return true
}

func generateCode(digits int) models.EmailCodeValue {
	if digits < 1 {
		digits = 6
	}
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return models.EmailCodeValue(time.Now().UnixNano() % max.Int64())
	}
	return models.EmailCodeValue(n.Int64())
}
