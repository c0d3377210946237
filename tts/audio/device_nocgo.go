//go:build nocgo

package audio

// OpenDevice reports that audio output is unavailable in nocgo builds.
func OpenDevice() (Device, error) {
	return nil, ErrNoDevice
}
