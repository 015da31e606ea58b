// Command gatescan is the gate operator's terminal: it reads QR payloads
// from a line-based scanner (or a typed PIN), shows the matched booking and
// runs the vehicle in/out actions against the parking backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nammaspot/parkgo/internal/backend"
	"github.com/nammaspot/parkgo/internal/logger"
	"github.com/nammaspot/parkgo/internal/repository"
	"github.com/nammaspot/parkgo/internal/scanner"
	"github.com/nammaspot/parkgo/internal/service/dispatch"
	"github.com/nammaspot/parkgo/internal/service/verification"
)

const maxOTPAttempts = 3

func main() {
	_ = godotenv.Load()

	var (
		baseURL  = flag.String("backend", os.Getenv("BACKEND_BASE_URL"), "parking backend base URL")
		cookie   = flag.String("cookie", os.Getenv("GATESCAN_COOKIE"), "operator backend session cookie")
		operator = flag.String("operator", envOr("GATESCAN_OPERATOR", "gate"), "operator id")
		pin      = flag.String("pin", "", "verify this PIN instead of scanning")
		seats    = flag.String("seats", "", "comma-separated slots to free on exit")
		action   = flag.String("action", "", "in, out or empty to only verify")
		timeout  = flag.Duration("timeout", 30*time.Second, "backend request timeout")
		level    = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	log := logger.New(os.Stderr, *level, "text")

	if *baseURL == "" {
		log.Error("backend URL is required (-backend or BACKEND_BASE_URL)")
		os.Exit(2)
	}
	if *action != "" && *action != "in" && *action != "out" {
		log.Error("unknown action", "action", *action)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = backend.WithCredentials(ctx, *cookie)

	api := backend.NewClient(backend.Config{BaseURL: *baseURL, Timeout: *timeout})
	direct := dispatch.NewDirect(api, log)
	svc := verification.New(api, newMemStore(), direct, nil, nil, log)

	d := &desk{
		svc:   svc,
		input: scanner.New(scanner.NewLineCamera(os.Stdin), log),
	}

	err := d.run(ctx, *operator, *pin, *seats, *action)
	direct.Wait()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type desk struct {
	svc   *verification.Service
	input *scanner.Scanner
}

func (d *desk) run(ctx context.Context, operator, pin, seats, action string) error {
	sess, err := d.svc.Open(ctx, operator)
	if err != nil {
		return err
	}
	for _, msg := range sess.LoadErrors {
		fmt.Fprintln(os.Stderr, "warning:", msg)
	}

	if pin != "" {
		if sess, err = d.svc.EnterPIN(ctx, sess.ID, pin); err != nil {
			return err
		}
		sess, err = d.svc.Verify(ctx, sess.ID)
	} else {
		sess, err = d.scan(ctx, sess.ID)
	}
	if err != nil {
		return err
	}

	printSession(sess.View())
	if sess.State != verification.StateMatched {
		if action == "in" {
			return d.in(ctx, sess.ID)
		}
		return errors.New(sess.Message)
	}

	switch action {
	case "in":
		return d.in(ctx, sess.ID)
	case "out":
		return d.out(ctx, sess.ID, seats)
	}
	return nil
}

// scan waits for a readable QR payload. Invalid payloads are reported and
// scanning continues.
func (d *desk) scan(ctx context.Context, id string) (*verification.Session, error) {
	fmt.Fprintln(os.Stderr, "Scan QR Code")

	var (
		sess    *verification.Session
		scanErr error
	)
	err := d.input.Scan(ctx, func(text string) bool {
		sess, scanErr = d.svc.Scan(ctx, id, text)
		if scanErr != nil {
			return true
		}
		if sess.State == verification.StateInvalidScan {
			fmt.Fprintln(os.Stderr, sess.Message)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return sess, scanErr
}

func (d *desk) in(ctx context.Context, id string) error {
	sess, err := d.svc.In(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(sess.Message)
	return nil
}

func (d *desk) out(ctx context.Context, id, seats string) error {
	if strings.TrimSpace(seats) == "" {
		var err error
		if seats, err = d.prompt(ctx, "Enter seats to free (comma separated): "); err != nil {
			return err
		}
	}
	if _, err := d.svc.SetSeatsToFree(ctx, id, seats); err != nil {
		return err
	}

	sess, err := d.svc.Out(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, sess.Message)

	for attempt := 1; ; attempt++ {
		otp, err := d.prompt(ctx, "OTP: ")
		if err != nil {
			return err
		}

		sess, err = d.svc.SubmitOTP(ctx, id, otp)
		if errors.Is(err, verification.ErrInvalidOTP) && attempt < maxOTPAttempts {
			fmt.Fprintln(os.Stderr, sess.Message)
			continue
		}
		if err != nil {
			return err
		}

		fmt.Println(sess.Message)
		return nil
	}
}

func (d *desk) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(os.Stderr, label)

	var line string
	err := d.input.Scan(ctx, func(text string) bool {
		line = text
		return true
	})
	return line, err
}

func printSession(v verification.View) {
	fmt.Println(v.Message)
	m := v.Match
	if m == nil {
		return
	}

	fmt.Printf("Token Number:   %d\n", m.Token)
	fmt.Printf("Slot Numbers:   %s\n", strings.Join(m.SlotNumbers, ", "))
	fmt.Printf("Date:           %s\n", m.Date)
	fmt.Printf("Vehicle Number: %s\n", m.VehicleNumber)
	fmt.Printf("Entry Time:     %s\n", m.EntryTime)
	fmt.Printf("Exit Time:      %s\n", m.ExitTime)
	fmt.Printf("Total Amount:   %.2f\n", m.TotalAmount)
	fmt.Printf("City:           %s\n", m.City)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// memStore keeps the single desk session for the life of the process.
type memStore struct {
	mu   sync.Mutex
	data map[string]verification.Session
}

func newMemStore() *memStore {
	return &memStore{data: map[string]verification.Session{}}
}

func (m *memStore) Load(ctx context.Context, id string) (verification.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return verification.Session{}, repository.ErrNotFound
	}
	return s, nil
}

func (m *memStore) Save(ctx context.Context, id string, s verification.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = s
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

