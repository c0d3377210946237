package reading

import (
	"fmt"
	"strconv"
	"strings"
)

const utterancePrefix = "CHUNK_"

// UtteranceID returns the engine utterance id for chunk i.
func UtteranceID(i int) string {
	return utterancePrefix + strconv.Itoa(i)
}

// ParseUtteranceID returns the chunk index encoded in id.
func ParseUtteranceID(id string) (int, error) {
	rest, ok := strings.CutPrefix(id, utterancePrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected utterance id %q", id)
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("unexpected utterance id %q", id)
	}
	return i, nil
}
