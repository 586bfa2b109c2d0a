// Package exectrace supplements the control loop with a purely
// observational eBPF tracer: it logs every exec by the workload itself or
// by a direct child of the workload during a run; execs by deeper
// descendants are not logged. It never influences the scheduling decision and a
// failure to attach degrades to a warning, never a fatal error (SPEC_FULL.md
// §4.H).
package exectrace

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
	"github.com/sirupsen/logrus"
)

//go:generate go run github.com/cilium/ebpf/cmd/bpf2go -target native exectrace bpf/exectrace.c -- -I bpf/headers

type execEvent struct {
	PID  uint32
	PPID uint32
	Comm [16]byte
}

// Tracer owns the attached tracepoint link and ring-buffer reader.
type Tracer struct {
	objs   exectraceObjects
	link   link.Link
	reader *ringbuf.Reader
	done   chan struct{}
}

// Start attaches the sched_process_exec tracepoint and begins logging any
// exec whose reported PID or PPID matches workloadPID, in a background
// goroutine. Any failure (missing CO-RE support, RemoveMemlock failing
// under an unprivileged container, ...) returns an error; the caller is
// expected to treat it as non-fatal and simply not start the tracer.
func Start(workloadPID int) (*Tracer, error) {
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("exectrace: remove memlock rlimit: %w", err)
	}

	var objs exectraceObjects
	if err := loadExectraceObjects(&objs, nil); err != nil {
		return nil, fmt.Errorf("exectrace: load objects: %w", err)
	}

	tp, err := link.Tracepoint("sched", "sched_process_exec", objs.TraceExec, nil)
	if err != nil {
		objs.Close()
		return nil, fmt.Errorf("exectrace: attach tracepoint: %w", err)
	}

	rd, err := ringbuf.NewReader(objs.Events)
	if err != nil {
		tp.Close()
		objs.Close()
		return nil, fmt.Errorf("exectrace: open ringbuf reader: %w", err)
	}

	t := &Tracer{objs: objs, link: tp, reader: rd, done: make(chan struct{})}
	go t.run(uint32(workloadPID))
	return t, nil
}

func (t *Tracer) run(workloadPID uint32) {
	defer close(t.done)
	for {
		record, err := t.reader.Read()
		if err != nil {
			if errors.Is(err, ringbuf.ErrClosed) {
				return
			}
			logrus.WithError(err).Debug("exectrace: ringbuf read failed")
			continue
		}

		var ev execEvent
		if err := binary.Read(bytes.NewReader(record.RawSample), binary.LittleEndian, &ev); err != nil {
			logrus.WithError(err).Debug("exectrace: decode event failed")
			continue
		}

		if ev.PID != workloadPID && ev.PPID != workloadPID {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"pid":  ev.PID,
			"ppid": ev.PPID,
			"comm": string(bytes.Trim(ev.Comm[:], "\x00")),
		}).Info("exectrace: workload descendant exec observed")
	}
}

// Stop closes the ring buffer reader, tracepoint link, and loaded objects,
// and waits for the background reader goroutine to exit. Safe to call on a
// Tracer whose Start partially failed only if Start returned non-nil.
func (t *Tracer) Stop() {
	if t == nil {
		return
	}
	if t.reader != nil {
		t.reader.Close()
	}
	if t.link != nil {
		t.link.Close()
	}
	t.objs.Close()
	<-t.done
}
