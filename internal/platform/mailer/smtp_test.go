package mailer

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
)

func TestNewSMTPSenderValidation(t *testing.T) {
	if _, err := NewSMTPSender("", "25", "", "", "noreply@acme.test"); err == nil {
		t.Fatalf("expected error for missing host")
	}
	if _, err := NewSMTPSender("mail.acme.test", "25", "", "", ""); err == nil {
		t.Fatalf("expected error for missing from address")
	}
}

func TestSendDeliversThroughRelay(t *testing.T) {
	sender, err := NewSMTPSender("mail.acme.test", "2525", "", "", "noreply@acme.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	sender.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotFrom = from
		gotTo = to
		gotMsg = msg
		return nil
	}

	err = sender.Send(context.Background(), Message{
		Subject:    "Catalog import finished",
		Body:       "created 12, skipped 1",
		Recipients: []string{" shop@acme.test ", ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAddr != "mail.acme.test:2525" {
		t.Errorf("unexpected relay addr: %s", gotAddr)
	}
	if gotFrom != "noreply@acme.test" {
		t.Errorf("expected default from, got %s", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "shop@acme.test" {
		t.Errorf("unexpected recipients: %v", gotTo)
	}
	body := string(gotMsg)
	if !strings.Contains(body, "Subject: Catalog import finished\r\n") {
		t.Errorf("subject header missing: %q", body)
	}
	if !strings.HasSuffix(body, "created 12, skipped 1") {
		t.Errorf("body missing: %q", body)
	}
}

func TestSendRequiresRecipient(t *testing.T) {
	sender, err := NewSMTPSender("mail.acme.test", "25", "", "", "noreply@acme.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sender.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Fatalf("expected error without recipients")
	}
}

func TestBuildMessageSanitisesSubject(t *testing.T) {
	msg := BuildMessage("line1\r\nline2", "body", "a@b.c", []string{"d@e.f"})
	if strings.Contains(string(msg), "Subject: line1\r\nline2") {
		t.Fatalf("header injection not sanitised: %q", msg)
	}
}
