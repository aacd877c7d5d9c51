package mail

import (
	"context"
	"encoding/json"
	"errors"
	"instavision/config"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
	got  chan struct{}
}

func newRecordingSender(err error) *recordingSender {
	return &recordingSender{err: err, got: make(chan struct{}, 16)}
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.got <- struct{}{}
	return s.err
}

func (s *recordingSender) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.got:
	case <-time.After(2 * time.Second):
		t.Fatal("mail was not delivered")
	}
}

func TestRegistrationMessage(t *testing.T) {
	msg := RegistrationMessage("ada@example.com", "Ada", "Pa$$w0rd1234", "REG-1", "http://localhost:3000/")
	require.Equal(t, "ada@example.com", msg.To)
	require.Equal(t, "Welcome to InstaVision - Your Account Details", msg.Subject)
	require.Contains(t, msg.Body, "Hello Ada!")
	require.Contains(t, msg.Body, "Registration Number: REG-1")
	require.Contains(t, msg.Body, "Password: Pa$$w0rd1234")
	require.Contains(t, msg.Body, "http://localhost:3000/login")
}

func TestPasswordResetMessage(t *testing.T) {
	msg := PasswordResetMessage("ada@example.com", "Ada", "N3w!password", "https://app.example.com")
	require.Equal(t, "InstaVision - Password Reset", msg.Subject)
	require.Contains(t, msg.Body, "New Password: N3w!password")
	require.Contains(t, msg.Body, "https://app.example.com/login")
}

func TestQueueDeliversMessages(t *testing.T) {
	sender := newRecordingSender(nil)
	q, err := NewQueue(sender, discard)
	require.NoError(t, err)

	msg := Message{To: "a@example.com", Subject: "hi", Body: "body"}
	require.NoError(t, q.Dispatch(context.Background(), msg))
	sender.wait(t)
	require.NoError(t, q.Close())

	require.Equal(t, []Message{msg}, sender.sent)
}

func TestQueueSurvivesSenderFailure(t *testing.T) {
	sender := newRecordingSender(errors.New("smtp down"))
	q, err := NewQueue(sender, discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, q.Dispatch(context.Background(), Message{To: "a@example.com"}))
	sender.wait(t)
	require.NoError(t, q.Dispatch(context.Background(), Message{To: "b@example.com"}))
	sender.wait(t)
}

// funcSender 把投递交给测试提供的函数
type funcSender func(ctx context.Context, msg Message) error

func (f funcSender) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

func TestQueueGivesUpOnStuckSender(t *testing.T) {
	delivered := make(chan string, 2)
	sender := funcSender(func(ctx context.Context, msg Message) error {
		if msg.To == "stuck@example.com" {
			<-ctx.Done()
			return ctx.Err()
		}
		delivered <- msg.To
		return nil
	})
	q, err := newQueue(sender, discard, 100*time.Millisecond, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, q.Dispatch(context.Background(), Message{To: "stuck@example.com"}))
	require.NoError(t, q.Dispatch(context.Background(), Message{To: "b@example.com"}))
	select {
	case to := <-delivered:
		require.Equal(t, "b@example.com", to)
	case <-time.After(2 * time.Second):
		t.Fatal("queue stalled behind a stuck sender")
	}
}

func TestQueueCloseDrainsPending(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	sender := funcSender(func(_ context.Context, msg Message) error {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		sent = append(sent, msg.To)
		mu.Unlock()
		return nil
	})
	q, err := newQueue(sender, discard, time.Second, 5*time.Second)
	require.NoError(t, err)

	var want []string
	for i := 0; i < 5; i++ {
		to := string(rune('a'+i)) + "@example.com"
		want = append(want, to)
		require.NoError(t, q.Dispatch(context.Background(), Message{To: to}))
	}
	require.NoError(t, q.Close())

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, want, sent)
	require.Zero(t, q.pending.Load())

	require.ErrorIs(t, q.Dispatch(context.Background(), Message{To: "late@example.com"}), ErrQueueClosed)
}

func TestQueueCloseGivesUpAfterDrainTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	sender := funcSender(func(ctx context.Context, _ Message) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	q, err := newQueue(sender, discard, 300*time.Millisecond, 50*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, q.Dispatch(context.Background(), Message{To: "a@example.com"}))
	require.NoError(t, q.Dispatch(context.Background(), Message{To: "b@example.com"}))

	start := time.Now()
	require.NoError(t, q.Close())
	require.Less(t, time.Since(start), 2*time.Second)
}

// silentSMTPServer 接受连接但从不发送问候语
func silentSMTPServer(t *testing.T) (host, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func TestSMTPSenderStopsAtContextDeadline(t *testing.T) {
	host, port := silentSMTPServer(t)
	sender := NewSMTPSender(config.Email{Host: host, Port: port, User: "u", Pass: "p", Timeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := sender.Send(ctx, Message{To: "a@example.com"})
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPSenderStopsAtConfiguredTimeout(t *testing.T) {
	host, port := silentSMTPServer(t)
	sender := NewSMTPSender(config.Email{Host: host, Port: port, User: "u", Pass: "p", Timeout: 200 * time.Millisecond})

	start := time.Now()
	err := sender.Send(context.Background(), Message{To: "a@example.com"})
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestAPISender(t *testing.T) {
	var got apiMailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg := config.Email{APIEndpoint: srv.URL, APIKey: "key-123", From: "noreply@example.com"}
	sender := NewAPISender(resty.New(), cfg)
	require.NoError(t, sender.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Body: "b"}))
	require.Equal(t, apiMailRequest{From: "noreply@example.com", To: "a@example.com", Subject: "s", Text: "b"}, got)
}

func TestAPISenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := NewAPISender(resty.New(), config.Email{APIEndpoint: srv.URL})
	require.Error(t, sender.Send(context.Background(), Message{To: "a@example.com"}))
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(config.Email{Transport: "log"}, resty.New(), discard)
	require.NoError(t, err)
	require.IsType(t, LogSender{}, s)

	s, err = NewSender(config.Email{}, resty.New(), discard)
	require.NoError(t, err)
	require.IsType(t, &SMTPSender{}, s)

	_, err = NewSender(config.Email{Transport: "http"}, resty.New(), discard)
	require.Error(t, err)

	_, err = NewSender(config.Email{Transport: "pigeon"}, resty.New(), discard)
	require.Error(t, err)
}

func TestSMTPSenderRequiresCredentials(t *testing.T) {
	err := NewSMTPSender(config.Email{Host: "smtp.example.com"}).Send(context.Background(), Message{To: "a@example.com"})
	require.ErrorContains(t, err, "smtp not configured")
}

func TestBuildMIME(t *testing.T) {
	raw := string(buildMIME("noreply@example.com", Message{To: "a@example.com", Subject: "Hello", Body: "line1\nline2"}))
	require.Contains(t, raw, "To: a@example.com\r\n")
	require.Contains(t, raw, "<noreply@example.com>")
	require.True(t, strings.HasSuffix(raw, "line1\r\nline2\r\n"))
}
