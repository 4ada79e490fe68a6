package message

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetNoColor(true)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetQuiet(false)
	})
	return &buf
}

func TestPrefixes(t *testing.T) {
	buf := capture(t)

	Info("Connected to %s", "Contoso")
	Success("CSV output written to %s", "out.csv")
	Warning("%d of %d principals could not be resolved", 1, 3)
	Error("boom")

	assert.Equal(t, "[*] Connected to Contoso\n[+] CSV output written to out.csv\n[!] 1 of 3 principals could not be resolved\n[-] boom\n", buf.String())
}

func TestQuietKeepsWarningsAndErrors(t *testing.T) {
	buf := capture(t)
	SetQuiet(true)

	Info("hidden")
	Success("hidden")
	Section("hidden")
	Banner()
	Warning("shown")
	Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("shown")))
}

func TestSectionAndEmphasize(t *testing.T) {
	buf := capture(t)

	Section("Assignments")
	assert.Contains(t, buf.String(), "-=[Assignments]=-")
	assert.Equal(t, "plain", Emphasize("plain"))
}
