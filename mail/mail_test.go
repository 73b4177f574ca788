package mail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/quotedprintable"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/caasmo/notesapi/config"
)

// mockSmtpServer accepts a single client connection and captures everything
// sent after DATA. It advertises AUTH PLAIN and no STARTTLS, so mailyak stays
// on a plain connection.
type mockSmtpServer struct {
	listener net.Listener
	addr     string
	data     string // Captured email data
	err      chan error
}

// newMockSmtpServer creates and starts a new mock SMTP server.
// It listens on a random available local port.
func newMockSmtpServer(t *testing.T) (*mockSmtpServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen on a local port: %w", err)
	}

	server := &mockSmtpServer{
		listener: listener,
		addr:     listener.Addr().String(),
		err:      make(chan error, 1),
	}

	// Start the server loop in a background goroutine.
	go server.serve(t)

	return server, nil
}

// serve handles a single incoming client connection.
func (s *mockSmtpServer) serve(t *testing.T) {
	conn, err := s.listener.Accept()
	if err != nil {
		// If the listener was closed, just exit gracefully.
		if !strings.Contains(err.Error(), "use of closed network connection") {
			s.err <- err
		}
		return
	}
	// handleConnection will close the connection.
	s.handleConnection(t, conn)
}

// handleConnection processes a single client connection.
func (s *mockSmtpServer) handleConnection(t *testing.T, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			t.Logf("error closing mock smtp server connection: %v", err)
		}
	}()

	reader := bufio.NewReader(conn)
	// Respond to the client's initial connection.
	if _, err := fmt.Fprint(conn, "220 mock-server ESMTP\r\n"); err != nil {
		return
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		// Log the received command for debugging
		t.Logf("mock-smtp-server received: %s", strings.TrimSpace(line))

		cmd := strings.ToUpper(strings.TrimSpace(line))

		switch {
		case strings.HasPrefix(cmd, "HELO"):
			if _, err := fmt.Fprint(conn, "250 mock-server\r\n"); err != nil {
				return
			}
		case strings.HasPrefix(cmd, "EHLO"):
			if _, err := fmt.Fprint(conn, "250-mock-server\r\n"); err != nil {
				return
			}
			if _, err := fmt.Fprint(conn, "250 AUTH PLAIN\r\n"); err != nil {
				return
			}
		case strings.HasPrefix(cmd, "AUTH PLAIN"):
			if _, err := fmt.Fprint(conn, "235 2.7.0 Authentication Succeeded\r\n"); err != nil {
				return
			}
		case strings.HasPrefix(cmd, "MAIL FROM:"), strings.HasPrefix(cmd, "RCPT TO:"):
			if _, err := fmt.Fprint(conn, "250 OK\r\n"); err != nil {
				return
			}
		case strings.HasPrefix(cmd, "DATA"):
			if _, err := fmt.Fprint(conn, "354 End data with <CR><LF>.<CR><LF>\r\n"); err != nil {
				return
			}
			for {
				bodyLine, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if bodyLine == ".\r\n" {
					break
				}
				s.data += bodyLine
			}
			if _, err := fmt.Fprint(conn, "250 OK: queued as 12345\r\n"); err != nil {
				return
			}
		case strings.HasPrefix(cmd, "QUIT"):
			if _, err := fmt.Fprint(conn, "221 Bye\r\n"); err != nil {
				return
			}
			return
		}
	}
}

// Close stops the listener and cleans up the server.
func (s *mockSmtpServer) Close() {
	_ = s.listener.Close()
}

func setupTest(t *testing.T) (*mockSmtpServer, *Mailer, *config.Config) {
	t.Helper()

	server, err := newMockSmtpServer(t)
	if err != nil {
		t.Fatalf("Failed to start mock SMTP server: %v", err)
	}

	host, portStr, err := net.SplitHostPort(server.addr)
	if err != nil {
		t.Fatalf("Failed to parse mock server address: %v", err)
	}

	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	if err != nil {
		t.Fatalf("Failed to parse port: %v", err)
	}

	cfg := config.NewDefaultConfig()
	cfg.Smtp.Enabled = true
	cfg.Smtp.Host = host
	cfg.Smtp.Port = port
	cfg.Smtp.FromName = "Notes App"
	cfg.Smtp.FromAddress = "noreply@test.com"
	cfg.Smtp.Username = "user"
	cfg.Smtp.Password = "secret"

	mailer, err := New(config.NewProvider(cfg), discardLogger())
	if err != nil {
		t.Fatalf("Failed to create mailer: %v", err)
	}

	return server, mailer, cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_NilProvider(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatal("New(nil) expected error")
	}
}

func TestSendVerificationEmail(t *testing.T) {
	server, mailer, cfg := setupTest(t)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	email := "test@example.com"
	link := "http://localhost:5173/verify-email?token=123"
	err := mailer.SendVerificationEmail(ctx, email, link)

	if err != nil {
		t.Fatalf("SendVerificationEmail should not return an error, but got: %v", err)
	}

	select {
	case srvErr := <-server.err:
		t.Fatalf("Mock SMTP server encountered an error: %v", srvErr)
	default:
	}

	decodedData := decodeQuotedPrintable(t, server.data)
	assertContains(t, decodedData, fmt.Sprintf("To: %s", email))
	assertContains(t, decodedData, fmt.Sprintf("From: %s <%s>", cfg.Smtp.FromName, cfg.Smtp.FromAddress))
	assertContains(t, decodedData, "Subject: Verify Your Email")
	assertContains(t, decodedData, fmt.Sprintf(`href="%s"`, link))
	assertContains(t, decodedData, "This link will expire in 1 hour.")
}

func TestSendVerificationEmail_Disabled(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Smtp.Enabled = false
	cfg.Smtp.Host = "127.0.0.1"
	cfg.Smtp.Port = 1 // nothing listens here

	mailer, err := New(config.NewProvider(cfg), discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := mailer.SendVerificationEmail(context.Background(), "a@example.com", "http://x/verify-email?token=1"); err != nil {
		t.Errorf("SendVerificationEmail() with smtp disabled error = %v, want nil", err)
	}
}

func TestSendVerificationEmail_ServerDown(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := listener.Addr().(*net.TCPAddr)
	_ = listener.Close()

	cfg := config.NewDefaultConfig()
	cfg.Smtp.Enabled = true
	cfg.Smtp.Host = "127.0.0.1"
	cfg.Smtp.Port = addr.Port
	cfg.Smtp.FromAddress = "noreply@test.com"

	mailer, err := New(config.NewProvider(cfg), discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mailer.SendVerificationEmail(ctx, "a@example.com", "http://x"); err == nil {
		t.Error("SendVerificationEmail() expected error when smtp server is down")
	}
}

func TestSendVerificationEmail_ContextCanceled(t *testing.T) {
	// A listener that accepts but never greets keeps mailyak blocked.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(2 * time.Second)
		}
	}()
	addr := listener.Addr().(*net.TCPAddr)

	cfg := config.NewDefaultConfig()
	cfg.Smtp.Enabled = true
	cfg.Smtp.Host = "127.0.0.1"
	cfg.Smtp.Port = addr.Port
	cfg.Smtp.FromAddress = "noreply@test.com"

	mailer, err := New(config.NewProvider(cfg), discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = mailer.SendVerificationEmail(ctx, "a@example.com", "http://x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SendVerificationEmail() error = %v, want deadline exceeded", err)
	}
}

// assertContains is a helper function to check if a string contains a substring.
func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("Expected string to contain '%s', but it did not. Full string: %s", substr, s)
	}
}

func decodeQuotedPrintable(t *testing.T, s string) string {
	t.Helper()
	reader := strings.NewReader(s)
	qpReader := quotedprintable.NewReader(reader)
	decodedBytes, err := io.ReadAll(qpReader)
	if err != nil {
		t.Fatalf("Failed to decode quoted-printable: %v", err)
	}
	return string(decodedBytes)
}