package visualization

import (
	"path/filepath"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos    string
		wantBin string
		wantErr bool
	}{
		{"linux", "xdg-open", false},
		{"darwin", "open", false},
		{"windows", "cmd", false},
		{"plan9", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := browserCommand(tt.goos, "http://localhost:1234/runs/r1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("browserCommand(%s) error = %v, wantErr %v", tt.goos, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := filepath.Base(cmd.Args[0]); got != tt.wantBin {
				t.Errorf("command = %s, want %s", got, tt.wantBin)
			}
			if last := cmd.Args[len(cmd.Args)-1]; last != "http://localhost:1234/runs/r1" {
				t.Errorf("url arg = %s", last)
			}
		})
	}
}
