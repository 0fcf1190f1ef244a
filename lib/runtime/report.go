package runtime

import (
	"fmt"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so identical reports are byte-identical.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("runtime: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ThreadRecord is one thread's entry in a ShutdownReport.
type ThreadRecord struct {
	ID       int64  `cbor:"1,keyasint"`
	Name     string `cbor:"2,keyasint"`
	State    string `cbor:"3,keyasint"`
	Uncaught string `cbor:"4,keyasint,omitempty"`
}

// ShutdownReport describes the threads a runtime started, as seen after
// the shutdown barrier. Times are Unix nanoseconds. Barriers counts the
// barrier runs completed so far, 1 for a program that shut down once.
type ShutdownReport struct {
	Session    string         `cbor:"1,keyasint"`
	StartedAt  int64          `cbor:"2,keyasint"`
	FinishedAt int64          `cbor:"3,keyasint"`
	Threads    []ThreadRecord `cbor:"4,keyasint"`
	Barriers   int            `cbor:"5,keyasint"`
}

// Report snapshots the thread registry.
func (r *Runtime) Report() *ShutdownReport {
	threads := r.threads.Threads()
	rep := &ShutdownReport{
		Session:    r.session.String(),
		StartedAt:  r.startedAt.UnixNano(),
		FinishedAt: time.Now().UnixNano(),
		Threads:    make([]ThreadRecord, 0, len(threads)),
		Barriers:   int(r.shutdowns.Load()),
	}
	for _, t := range threads {
		rec := ThreadRecord{
			ID:    t.ID(),
			Name:  t.Name(),
			State: t.State().String(),
		}
		if err := t.Uncaught(); err != nil {
			rec.Uncaught = err.Error()
		}
		rep.Threads = append(rep.Threads, rec)
	}
	return rep
}

// MarshalReport serializes a ShutdownReport to CBOR bytes.
func MarshalReport(rep *ShutdownReport) ([]byte, error) {
	return cborEncMode.Marshal(rep)
}

// UnmarshalReport deserializes a ShutdownReport from CBOR bytes.
func UnmarshalReport(data []byte) (*ShutdownReport, error) {
	var rep ShutdownReport
	if err := cbor.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("runtime: unmarshal report: %w", err)
	}
	return &rep, nil
}

// WriteReport encodes rep and writes it to path.
func WriteReport(path string, rep *ShutdownReport) error {
	data, err := MarshalReport(rep)
	if err != nil {
		return fmt.Errorf("runtime: marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("runtime: write report %s: %w", path, err)
	}
	return nil
}

// ReadReport reads and decodes a report written by WriteReport.
func ReadReport(path string) (*ShutdownReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runtime: read report %s: %w", path, err)
	}
	return UnmarshalReport(data)
}
