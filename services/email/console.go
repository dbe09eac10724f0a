package emailsvc

import (
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/elimuhq/elimu/core"
)

type consoleService struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	disableOutput    bool

	mu           sync.Mutex
	sentMessages []core.EmailMessage
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService writes outgoing mail to the log instead of sending it.
func NewConsoleService(conf *core.Config) *consoleService {
	return &consoleService{
		defaultFromEmail: conf.DefaultFromEmail(),
		subjPrefix:       "[" + conf.AppName + "] ",
	}
}

// NewConsoleServiceMock sends nothing and captures messages for assertions.
func NewConsoleServiceMock(conf *core.Config) *consoleService {
	svc := NewConsoleService(conf)
	svc.disableOutput = true
	return svc
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if msg.HasRecipients() && msg.HasContent() {
			svc.send(*msg)
			svc.mu.Lock()
			svc.sentMessages = append(svc.sentMessages, *msg)
			svc.mu.Unlock()
		}
	}
}

// SentMessages returns a snapshot of everything sent so far.
func (svc *consoleService) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	msgs := make([]core.EmailMessage, len(svc.sentMessages))
	copy(msgs, svc.sentMessages)
	return msgs
}

func (svc *consoleService) send(msg core.EmailMessage) {
	if svc.disableOutput {
		return
	}
	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.defaultFromEmail.String())
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", svc.joinAddresses(msg.To))
	_, _ = fmt.Fprintf(body, "\r\n%s\r\n", msg.Body)
	log.Println(body.String())
}

func (svc *consoleService) joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
