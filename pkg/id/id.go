// Package id generates dump ids. Ids are ULIDs, so they sort by the time the dump
// started and carry that time.
package id

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const dumpPrefix = "dump-"

var (
	mutex   sync.Mutex
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// DumpID identifies one dump run in logs and traces.
type DumpID struct {
	value ulid.ULID
}

// NewDumpIDAt creates a dump id for a dump started at t. Ids created within the
// same millisecond increase monotonically.
func NewDumpIDAt(t time.Time) (DumpID, error) {
	mutex.Lock()
	defer mutex.Unlock()

	v, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return DumpID{}, err
	}
	return DumpID{v}, nil
}

// NewDumpID returns the string form of a dump id for a dump starting now.
func NewDumpID() (string, error) {
	d, err := NewDumpIDAt(time.Now())
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// ParseDumpID parses the string form of a dump id.
func ParseDumpID(s string) (DumpID, error) {
	raw, ok := strings.CutPrefix(s, dumpPrefix)
	if !ok {
		return DumpID{}, fmt.Errorf("dump id '%s' lacks the '%s' prefix", s, dumpPrefix)
	}
	v, err := ulid.ParseStrict(strings.ToUpper(raw))
	if err != nil {
		return DumpID{}, fmt.Errorf("dump id '%s': %w", s, err)
	}
	return DumpID{v}, nil
}

func (d DumpID) String() string {
	return dumpPrefix + strings.ToLower(d.value.String())
}

// Time is when the dump started, to the millisecond.
func (d DumpID) Time() time.Time {
	return ulid.Time(d.value.Time())
}
