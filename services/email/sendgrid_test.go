package emailsvc

import (
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	logsvc "github.com/Jati804/internal-web-sanur-akademi-sub000/services/logger"
)

func Test_sendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Academy.Name = "Sanur Akademi"
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	svc, ok := NewSendgridService(conf, logger).(*sendgridService)
	require.True(t, ok)

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Ibu Putu", Address: "ibu.putu@test.id"}},
		Subject:     "Receipt SA/202610/0001",
		TextContent: "Thank you",
	}
	m := svc.prepare(msg)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Sanur Akademi] Receipt SA/202610/0001", m.Personalizations[0].Subject)
	require.Len(t, m.Personalizations[0].To, 1)
	assert.Equal(t, "ibu.putu@test.id", m.Personalizations[0].To[0].Address)
	require.Len(t, m.Content, 1, "no html part without html content")
	assert.Equal(t, "text/plain", m.Content[0].Type)

	conf.Academy.Name = ""
	svc = NewSendgridService(conf, logger).(*sendgridService)
	assert.Equal(t, "["+conf.AppName+"] x", svc.prepare(core.EmailMessage{Subject: "x"}).Personalizations[0].Subject)
}
