package compute

import "fmt"

// Class is the kind of compute backend a provider runs on.
type Class uint8

const (
	ClassUnspecified Class = iota
	ClassCPU
	ClassCUDA
	ClassVulkan
)

// String returns the display name used in provider listings.
func (c Class) String() string {
	switch c {
	case ClassUnspecified:
		return "UNSPECIFIED"
	case ClassCPU:
		return "CPU"
	case ClassCUDA:
		return "CUDA"
	case ClassVulkan:
		return "VULKAN"
	default:
		return "INVALID"
	}
}

// Valid reports whether c is one of the declared classes.
func (c Class) Valid() bool {
	switch c {
	case ClassUnspecified, ClassCPU, ClassCUDA, ClassVulkan:
		return true
	default:
		return false
	}
}

// IsCPU reports whether providers of this class are general-purpose
// processor implementations. CPU providers serve as the reference and are
// left out of benchmarks and cross-provider comparisons. Undeclared
// classes are not CPU; Enumerate rejects them with Valid.
func (c Class) IsCPU() bool {
	switch c {
	case ClassCPU:
		return true
	case ClassUnspecified, ClassCUDA, ClassVulkan:
		return false
	default:
		return false
	}
}

// ParseClass parses the display name produced by String.
func ParseClass(s string) (Class, error) {
	switch s {
	case "UNSPECIFIED":
		return ClassUnspecified, nil
	case "CPU":
		return ClassCPU, nil
	case "CUDA":
		return ClassCUDA, nil
	case "VULKAN":
		return ClassVulkan, nil
	default:
		return 0, fmt.Errorf("unknown provider class %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid provider class %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := ParseClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
