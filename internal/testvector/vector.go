// Package testvector holds fixed labeling fixtures used as conformance
// oracles.
//
// Fixtures are YAML documents:
//
//	name: scrypt-1bit-64k
//	identity: "00...00"   # 32 bytes, hex
//	salt: "00...00"       # 32 bytes, hex
//	label_size: 1
//	labels_count: 65536
//	result: |
//	  0cb8c08f...         # packed labels, hex, whitespace ignored
//
// The default fixture is embedded in the binary.
package testvector

import (
	"bytes"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/postbench/internal/layout"
)

//go:embed vectors/scrypt-1bit-64k.yaml
var defaultYAML []byte

// Default label size and count of the embedded fixture and of fixtures
// produced by the generator.
const (
	DefaultLabelSize   = 1
	DefaultLabelsCount = 64 * 1024
)

// Vector is an immutable labeling fixture.
type Vector struct {
	Name        string
	Description string
	Identity    [32]byte
	Salt        [32]byte
	LabelSize   uint32
	LabelsCount uint64
	Result      []byte
}

// document is the YAML shape of a Vector.
type document struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Identity    string `yaml:"identity"`
	Salt        string `yaml:"salt"`
	LabelSize   uint32 `yaml:"label_size"`
	LabelsCount uint64 `yaml:"labels_count"`
	Result      string `yaml:"result"`
}

// Default returns the embedded fixture.
func Default() *Vector {
	v, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("testvector: embedded fixture is invalid: %v", err))
	}
	return v
}

// Load reads a fixture file.
func Load(path string) (*Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test vector: %w", err)
	}
	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Parse decodes and validates a fixture document.
func Parse(data []byte) (*Vector, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse test vector: %w", err)
	}

	v := &Vector{
		Name:        doc.Name,
		Description: doc.Description,
		LabelSize:   doc.LabelSize,
		LabelsCount: doc.LabelsCount,
	}
	if err := decodeFixed(doc.Identity, v.Identity[:]); err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	if err := decodeFixed(doc.Salt, v.Salt[:]); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	result, err := hex.DecodeString(strings.Join(strings.Fields(doc.Result), ""))
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	v.Result = result

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks that the fixture is self-consistent.
func (v *Vector) Validate() error {
	if v.LabelSize < 1 || v.LabelSize > 256 {
		return fmt.Errorf("label_size %d out of range [1, 256]", v.LabelSize)
	}
	if v.LabelsCount < 1 {
		return fmt.Errorf("labels_count must be positive")
	}
	if want := layout.PackedSize(v.LabelsCount, v.LabelSize); uint64(len(v.Result)) != want {
		return fmt.Errorf("result holds %d bytes, %d labels of %d bits need %d", len(v.Result), v.LabelsCount, v.LabelSize, want)
	}
	return nil
}

// Size returns the packed size of the expected result.
func (v *Vector) Size() uint64 {
	return layout.PackedSize(v.LabelsCount, v.LabelSize)
}

// Marshal encodes the fixture as YAML, 32 result bytes per line.
func (v *Vector) Marshal() ([]byte, error) {
	var result strings.Builder
	for off := 0; off < len(v.Result); off += 32 {
		end := min(off+32, len(v.Result))
		result.WriteString(hex.EncodeToString(v.Result[off:end]))
		result.WriteByte('\n')
	}
	doc := document{
		Name:        v.Name,
		Description: v.Description,
		Identity:    hex.EncodeToString(v.Identity[:]),
		Salt:        hex.EncodeToString(v.Salt[:]),
		LabelSize:   v.LabelSize,
		LabelsCount: v.LabelsCount,
		Result:      result.String(),
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode test vector: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the fixture to path.
func (v *Vector) Save(path string) error {
	data, err := v.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write test vector: %w", err)
	}
	return nil
}

func decodeFixed(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return fmt.Errorf("want %d bytes, got %d", len(dst), len(b))
	}
	copy(dst, b)
	return nil
}
