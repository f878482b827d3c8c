package process

import (
	"errors"
	"os"
	"os/exec"
	"testing"
)

func TestAbandonReleasesPipes(t *testing.T) {
	cmd := exec.Command("true")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("stderr pipe failed")
	if got := abandon(cmd, boom); got != boom {
		t.Fatalf("expected the original error, got %v", got)
	}
	if cmd.Process != nil {
		t.Fatal("nothing should have been launched")
	}
	if _, err := stdin.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected the stdin pipe to be closed, got %v", err)
	}
	if _, err := stdout.Read(make([]byte, 1)); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected the stdout pipe to be closed, got %v", err)
	}
}
