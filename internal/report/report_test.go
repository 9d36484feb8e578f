package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestBlocks_MarksMismatches(t *testing.T) {
	ref := make([]byte, 40)
	got := make([]byte, 40)
	for i := range ref {
		ref[i] = byte(i)
		got[i] = byte(i)
	}
	got[3] = 0xff
	got[35] = 0xee

	var out bytes.Buffer
	NewStyled(&out, false).Blocks(ref, got, 40)
	newGolden(t).Assert(t, "blocks_two_mismatches", out.Bytes())
}

func TestBlocks_StopsAtPrefix(t *testing.T) {
	ref := []byte{1, 2, 3, 4}
	got := []byte{1, 2, 3, 5}
	var out bytes.Buffer
	NewStyled(&out, false).Blocks(ref, got, 3)
	assert.Equal(t, "01=01 02=02 03=03 \n", out.String())
}

func TestThroughput_GroupsDigits(t *testing.T) {
	var out bytes.Buffer
	NewStyled(&out, false).Throughput("", "GeForce", 1179648, 25000)
	assert.Equal(t, "GeForce: 1,179,648 hashes, 25,000 h/s\n", out.String())
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "1.1 MiB", Bytes(1179648))
	assert.Equal(t, "128 B", Bytes(128))
}

func TestNew_NonTerminalIsUnstyled(t *testing.T) {
	var out bytes.Buffer
	p := New(&out)
	assert.False(t, p.styled)
}

func TestTable_RendersHeadersAndRows(t *testing.T) {
	var buf bytes.Buffer
	p := NewStyled(&buf, false)
	p.Table([]string{"MODE", "OUTCOME"}, [][]string{{"test", "pass"}, {"benchmark", "done"}})

	out := buf.String()
	assert.Contains(t, out, "MODE")
	assert.Contains(t, out, "benchmark")
	assert.Contains(t, out, "done")
	assert.Less(t, strings.Index(out, "MODE"), strings.Index(out, "benchmark"))
}
