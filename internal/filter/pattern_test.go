package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompiledPatternMatch(t *testing.T) {
	type check struct {
		path  string
		isDir bool
		want  bool
	}
	tests := []struct {
		pattern string
		checks  []check
	}{
		{"*.thm", []check{
			{"IMG_0001.thm", false, true},
			{"DCIM/100/IMG_0001.thm", false, true},
			{"IMG_0001.thm.bak", false, false},
			{"IMG_0001.JPG", false, false},
		}},
		{"**/*.xml", []check{
			{"app.xml", false, true},
			{"etc/app/settings.xml", false, true},
			{"etc/app/settings.json", false, false},
		}},
		{"/boot.cfg", []check{
			{"boot.cfg", false, true},
			{"cfg/boot.cfg", false, false},
		}},
		{"lost+found/", []check{
			{"lost+found", true, true},
			{"mnt/lost+found", true, true},
			{"lost+found", false, false},
		}},
		{"IMG_000?.JPG", []check{
			{"IMG_0007.JPG", false, true},
			{"IMG_0010.JPG", false, false},
			{"IMG_000/.JPG", false, false},
		}},
		{"DCIM/Camera/*.mp4", []check{
			{"DCIM/Camera/clip.mp4", false, true},
			{"backup/DCIM/Camera/clip.mp4", false, false},
		}},
		{"data/**/logs/*.txt", []check{
			{"data/logs/a.txt", false, true},
			{"data/app/v2/logs/a.txt", false, true},
			{"old/data/logs/a.txt", false, false},
		}},
		{"core.[0-9]", []check{
			{"core.3", false, true},
			{"core.x", false, false},
		}},
		{"core.[!0-9]", []check{
			{"core.x", false, true},
			{"core.3", false, false},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := compilePattern(tt.pattern)
			require.NoError(t, err)
			for _, pr := range tt.checks {
				assert.Equal(t, pr.want, p.match(pr.path, pr.isDir), "%s (dir=%v)", pr.path, pr.isDir)
			}
		})
	}
}
