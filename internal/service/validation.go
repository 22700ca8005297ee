package service

import (
	"fmt"
	"net/mail"
	"time"
)

func validateEmail(fields map[string]string, email string) {
	if email == "" {
		fields["email"] = "Email is required"
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		fields["email"] = "Invalid email"
	}
}

func validatePassword(fields map[string]string, field, password string) {
	switch {
	case len(password) < minPasswordLength:
		fields[field] = fmt.Sprintf("Password must be at least %d characters", minPasswordLength)
	case len(password) > maxPasswordBytes:
		fields[field] = fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes)
	}
}

func humanizeDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	m := int(d.Round(time.Minute) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
