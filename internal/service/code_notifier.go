package service

import (
	"fmt"

	"github.com/luoxins/pixgate/internal/model"
)

// CodeNotifier renders the purpose-specific message around a passcode and
// hands it to the mail transport. No retries here; the caller decides what a
// delivery failure means for the operation as a whole.
type CodeNotifier struct {
	sender EmailSender
}

func NewCodeNotifier(sender EmailSender) *CodeNotifier {
	return &CodeNotifier{sender: sender}
}

func (n *CodeNotifier) Notify(email, purpose, code string, expireMinutes int) error {
	subject, body := renderCodeMessage(purpose, code, expireMinutes)
	return n.sender.Send(email, subject, body)
}

func renderCodeMessage(purpose, code string, expireMinutes int) (string, string) {
	switch purpose {
	case model.PasscodePurposeReset:
		return "Reset your password",
			fmt.Sprintf("Your password reset code is %s. It expires in %d minutes. If you did not request a reset, you can ignore this message.", code, expireMinutes)
	default:
		return "Your verification code",
			fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, expireMinutes)
	}
}
