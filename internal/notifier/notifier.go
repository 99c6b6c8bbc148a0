// Package notifier fans a firing alarm out to its delivery channels:
// inline display, desktop notification, audio playback and an arbitrary
// procedure. The scheduler decides when and with what payload; the sinks
// decide how.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/xfce-mirror/orage-sub000/internal/constants"
	"github.com/xfce-mirror/orage-sub000/internal/logger"
	"github.com/xfce-mirror/orage-sub000/internal/models"
)

var (
	findProcessFunc = ps.FindProcess
)

// Dispatcher is what the scheduler calls when an alarm fires.
type Dispatcher interface {
	Dispatch(models.Alarm) error
}

type Config struct {
	// LockfilePath locates the tray daemon's lockfile ("port|pid|secret").
	LockfilePath string
	// SoundCommand plays a sound file, e.g. "paplay".
	SoundCommand string
	// Inline receives alarms flagged for inline display; nil falls back to
	// the logger.
	Inline func(models.Alarm)
}

type Notifier struct {
	cfg Config

	// runCommand is swappable for tests.
	runCommand func(ctx context.Context, name string, args ...string) error
}

func New(cfg Config) *Notifier {
	return &Notifier{
		cfg: cfg,
		runCommand: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Dispatch delivers the alarm on every channel it enables. Sink failures
// are collected, logged and returned joined; none of them stops the
// remaining channels.
func (n *Notifier) Dispatch(a models.Alarm) error {
	var errs []error

	if a.DisplayInline {
		if n.cfg.Inline != nil {
			n.cfg.Inline(a)
		} else {
			logger.Info("alarm", "title", a.Title, "when", a.ActionTime)
		}
	}
	if a.DisplayNotify {
		if err := n.notify(a); err != nil {
			logger.Warn("desktop notification failed", "record", a.RecordID, "error", err)
			errs = append(errs, err)
		}
	}
	if a.Audio && a.Sound != "" {
		if err := n.playSound(a); err != nil {
			logger.Warn("alarm sound failed", "record", a.RecordID, "error", err)
			errs = append(errs, err)
		}
	}
	if a.Procedure && a.Command != "" {
		if err := n.runProcedure(a); err != nil {
			logger.Warn("alarm procedure failed", "record", a.RecordID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type webhookPayload struct {
	Title      string `json:"title"`
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
}

// notify posts the alarm to the tray daemon found through the lockfile.
func (n *Notifier) notify(a models.Alarm) error {
	port, secret, err := findAndValidateTrayProcess(n.cfg.LockfilePath)
	if err != nil {
		return err
	}

	timeoutMs := uint32(constants.NotificationDurationMs)
	if a.NotifyTimeout > 0 {
		timeoutMs = uint32(a.NotifyTimeout) * 1000
	}
	text := a.ActionTime
	if a.Description != "" {
		text = a.ActionTime + "\n" + a.Description
	}
	payload := webhookPayload{
		Title:      a.Title,
		Text:       text,
		DurationMs: timeoutMs,
	}
	return sendNotification(port, secret, payload)
}

func (n *Notifier) playSound(a models.Alarm) error {
	if n.cfg.SoundCommand == "" {
		return fmt.Errorf("no sound command configured")
	}
	repeats := a.SoundRepeat
	if repeats < 1 {
		repeats = 1
	}
	ctx := context.Background()
	for i := 0; i < repeats; i++ {
		if i > 0 && a.SoundDelay > 0 {
			time.Sleep(a.SoundDelay)
		}
		if err := n.runCommand(ctx, n.cfg.SoundCommand, a.Sound); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) runProcedure(a models.Alarm) error {
	return n.runCommand(context.Background(), "/bin/sh", "-c", a.Command)
}

func findAndValidateTrayProcess(lockfilePath string) (string, string, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", errors.New("notification tray is not running")
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("tray lockfile is malformed")
	}

	port := parts[0]
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		return "", "", errors.New("invalid port in tray lockfile")
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", "", errors.New("invalid process id in tray lockfile")
	}
	secret := parts[2]
	if strings.TrimSpace(secret) == "" {
		return "", "", errors.New("secret in tray lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", errors.New("tray process not running")
	}
	if !strings.HasPrefix(process.Executable(), constants.TrayAppIdentifier) {
		return "", "", fmt.Errorf("process %d is not the notification tray (is %s)", pid, process.Executable())
	}

	return port, secret, nil
}

func sendNotification(port, secret string, payload webhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("http://127.0.0.1:%s", port), bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alarmd-Secret", secret)

	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(body))
}
