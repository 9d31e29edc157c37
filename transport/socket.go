// Package transport owns the single kernel control-channel datagram
// socket spec.md §4.3 (C3) describes: binding, sending one frame at a
// time, and draining replies either exhaustively (RecvAll), one datagram
// at a time (RecvOnce), or as a cancellable lazy sequence of decoded
// batches (Batches).
//
// Grounded on eriknordmark/netlink/conntrack_linux.go's
// dumpConntrackTable/req.Execute call shape (bind with an auto-assigned
// port, send one request, loop recvfrom until NLMSG_DONE), generalized
// from "one dump, return a slice" to the four operations this package
// exposes, and on DataDog-datadog-agent/pkg/network/netlink/consumer.go
// (other_examples/, not a teacher) for the subscribed streaming-socket
// shape: a group-mask bind with a one-datagram-per-wakeup draining loop.
package transport

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/netfilter-tools/conntrack/internal/nlmsg"
	"github.com/netfilter-tools/conntrack/message"
)

// recvBufferSize is generous enough to hold a full conntrack dump
// datagram; the kernel truncates nothing we care about at this size in
// practice, matching the buffer DataDog's consumer.go sizes its socket to.
const recvBufferSize = 1024 * 1024

// Transport is the capability interface C3 exposes; transport.Socket is
// the real implementation, transport.Mock backs the unit tests (spec.md
// §9: "a mock transport is supplied for tests").
type Transport interface {
	Send(frame []byte) error
	RecvAll() ([]nlmsg.Frame, error)
	RecvOnce() ([]nlmsg.Frame, error)
	Batches() *Batches
	Close() error
}

// Socket owns one AF_NETLINK/NETLINK_NETFILTER datagram socket, bound to
// an auto-assigned sender port and the caller's multicast group mask
// (spec.md §4.3; empty mask means no subscription).
type Socket struct {
	fd     int
	log    logrus.FieldLogger
	groups message.GroupMask
}

// Open binds a new Socket. groupMask of 0 means no subscription (List,
// Get, Count, Stats); a non-zero mask puts the socket in the Subscribed
// state spec.md §4.9 describes, for Event operations.
func Open(groupMask message.GroupMask, log logrus.FieldLogger) (*Socket, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_NETFILTER)
	if err != nil {
		return nil, fmt.Errorf("transport: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, recvBufferSize); err != nil {
		log.WithError(err).Debug("transport: could not set SO_RCVBUF, continuing with default")
	}
	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: uint32(groupMask)}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: bind: %w", err)
	}
	log.WithField("groups", groupMask).Debug("transport: socket bound")
	return &Socket{fd: fd, log: log, groups: groupMask}, nil
}

// Send writes exactly one serialized request frame (spec.md §4.3).
func (s *Socket) Send(frame []byte) error {
	dest := &unix.SockaddrNetlink{Family: unix.AF_NETLINK}
	if err := unix.Sendto(s.fd, frame, 0, dest); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	s.log.WithField("bytes", len(frame)).Debug("transport: sent frame")
	return nil
}

// Close releases the socket. Per spec.md §5, dropping the handle before
// draining discards unread kernel-side data; Close is that drop.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}

// recvDatagram reads exactly one datagram into a fresh buffer.
func (s *Socket) recvDatagram() ([]byte, error) {
	buf := make([]byte, recvBufferSize)
	n, _, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: recv: %w", err)
	}
	return buf[:n], nil
}

// RecvAll loops reading datagrams and parsing frames until an end-of-dump
// frame is seen or an error payload is received, returning everything
// accumulated so far on either outcome (spec.md §4.3).
func (s *Socket) RecvAll() ([]nlmsg.Frame, error) {
	var out []nlmsg.Frame
	for {
		b, err := s.recvDatagram()
		if err != nil {
			if len(out) > 0 {
				return out, nil
			}
			return nil, err
		}
		done := false
		perr := nlmsg.ParseFrames(b, func(f nlmsg.Frame) (bool, error) {
			if f.IsError() {
				return true, f.Error()
			}
			if f.IsDone() {
				done = true
				return true, nil
			}
			if nlmsg.IsControl(f.Header.Type) {
				return false, nil
			}
			out = append(out, f)
			return false, nil
		})
		if perr != nil {
			if len(out) > 0 {
				return out, nil
			}
			return nil, perr
		}
		if done {
			return out, nil
		}
	}
}

// RecvOnce reads exactly one datagram and parses every frame it contains.
// An end-of-dump frame encountered mid-datagram stops the parse early,
// returning whatever was collected before it (spec.md §4.3).
func (s *Socket) RecvOnce() ([]nlmsg.Frame, error) {
	b, err := s.recvDatagram()
	if err != nil {
		return nil, err
	}
	var out []nlmsg.Frame
	err = nlmsg.ParseFrames(b, func(f nlmsg.Frame) (bool, error) {
		if f.IsDone() {
			return true, nil
		}
		if nlmsg.IsControl(f.Header.Type) {
			return false, nil
		}
		out = append(out, f)
		return false, nil
	})
	return out, err
}

// Batches returns the lazy, cancellable sequence of decoded batches
// spec.md §4.3/§4.9/§5 describe: one batch per datagram, terminated by an
// end-of-dump frame, with an error-payload frame surfacing as the next
// item without ending the sequence.
func (s *Socket) Batches() *Batches {
	return newBatches(s)
}

// newBatches wraps any datagramSource (a real Socket or a Mock) in a
// Batches iterator.
func newBatches(src datagramSource) *Batches {
	return &Batches{sock: src}
}

// datagramSource is the minimal capability Batches needs: read one
// datagram's worth of bytes, and release the underlying resource. *Socket
// and *Mock both satisfy it, so Batches works identically over a real
// kernel socket or a canned test fixture.
type datagramSource interface {
	recvDatagram() ([]byte, error)
	Close() error
}

// Batches is the cooperative, single-poll-per-wakeup iterator over
// decoded frame batches. It is not safe for concurrent use — spec.md §5
// grants the socket to exactly one in-flight poll at a time.
type Batches struct {
	sock datagramSource
	done bool
}

// Next pulls one datagram, parses its frames, and returns them as a
// batch. ok is false once the sequence has ended: the call whose datagram
// carries the end-of-dump frame returns the frames that preceded it with
// ok false, as does every later call, and a cancelled ctx ends it too;
// callers must stop calling Next once ok is false. An error-payload frame is returned as err without
// ending the sequence — the next call to Next resumes draining.
func (b *Batches) Next(ctx context.Context) (frames []nlmsg.Frame, ok bool, err error) {
	if b.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		b.done = true
		return nil, false, err
	}
	raw, err := b.sock.recvDatagram()
	if err != nil {
		b.done = true
		return nil, false, err
	}
	var batch []nlmsg.Frame
	var perr error
	walkErr := nlmsg.ParseFrames(raw, func(f nlmsg.Frame) (bool, error) {
		if f.IsDone() {
			b.done = true
			return true, nil
		}
		if f.IsError() {
			perr = f.Error()
			return true, nil
		}
		if nlmsg.IsControl(f.Header.Type) {
			return false, nil
		}
		batch = append(batch, f)
		return false, nil
	})
	if walkErr != nil {
		return nil, true, walkErr
	}
	if perr != nil {
		return nil, true, perr
	}
	return batch, !b.done, nil
}

// Close cancels the sequence: subsequent Next calls return ok == false.
// It does not close the underlying socket — that's owned by whoever
// constructed it (spec.md §5: dropping the Conntrack handle, not the
// sequence, is what releases the socket).
func (b *Batches) Close() error {
	b.done = true
	return nil
}
