package authorization

import (
	"strings"
	"sync"
	"time"

	"github.com/mojocn/base64Captcha"
)

// CaptchaChallenge is one issued captcha image, delivered as a data URI.
type CaptchaChallenge struct {
	ID          string
	ImageBase64 string
	ExpiresAt   time.Time
}

// CaptchaStore issues and verifies digit captchas kept in an in-memory
// store. Answers are single-use.
type CaptchaStore struct {
	mu     sync.Mutex
	driver *base64Captcha.DriverDigit
	store  base64Captcha.Store
	ttl    time.Duration
}

func NewCaptchaStore(ttl time.Duration) *CaptchaStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &CaptchaStore{
		driver: base64Captcha.NewDriverDigit(60, 160, 5, 0.7, 80),
		store:  base64Captcha.NewMemoryStore(2048, ttl),
		ttl:    ttl,
	}
}

// Issue generates a new challenge. On generator failure the zero challenge
// is returned and verification of it will always fail.
func (s *CaptchaStore) Issue() CaptchaChallenge {
	if s == nil {
		return CaptchaChallenge{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, image, _, err := base64Captcha.NewCaptcha(s.driver, s.store).Generate()
	if err != nil {
		return CaptchaChallenge{}
	}

	if image != "" && !strings.HasPrefix(image, "data:") {
		image = "data:image/png;base64," + image
	}

	return CaptchaChallenge{ID: id, ImageBase64: image, ExpiresAt: time.Now().Add(s.ttl)}
}

// Verify consumes the challenge identified by id if the answer matches.
// A nil store disables captcha enforcement entirely.
func (s *CaptchaStore) Verify(id, answer string) bool {
	if s == nil {
		return true
	}

	id = strings.TrimSpace(id)
	answer = strings.TrimSpace(answer)
	if id == "" || answer == "" {
		return false
	}

	return base64Captcha.NewCaptcha(s.driver, s.store).Verify(id, answer, true)
}
