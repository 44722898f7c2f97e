package deprecation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNoticeMessage(t *testing.T) {
	tests := []struct {
		name   string
		notice Notice
		want   string
	}{
		{
			name:   "bare",
			notice: Notice{Name: "pkg.Old"},
			want:   "pkg.Old has been deprecated.",
		},
		{
			name:   "replacement and removal",
			notice: Notice{Name: "pkg.Old", Replacement: "pkg.New", RemovedIn: 2},
			want:   "pkg.Old has been deprecated and is scheduled to be removed in v2. Use pkg.New instead.",
		},
		{
			name:   "upgrade guide",
			notice: Notice{Name: "pkg.Old", UpgradeGuideVersion: 1, UpgradeGuideSection: "resolve_graph"},
			want:   `pkg.Old has been deprecated. See the upgrade guide for v1 (section "resolve_graph").`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.notice.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNagOnce(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	logger := log.New(&buf)
	n := Notice{Name: "pkg.Once", Replacement: "pkg.Twice"}

	if !Nag(logger, n) {
		t.Fatal("first Nag should log")
	}
	if Nag(logger, n) {
		t.Error("second Nag should be silent")
	}
	if got := strings.Count(buf.String(), "pkg.Once"); got != 1 {
		t.Errorf("logged %d times, want 1: %s", got, buf.String())
	}

	Reset()
	if !Nag(logger, n) {
		t.Error("Nag after Reset should log again")
	}
}

func TestNagDisabled(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	if Nag(log.New(&buf), Notice{Name: "pkg.Quiet", Disabled: true}) {
		t.Error("disabled notice should not log")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
