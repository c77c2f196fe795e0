package fdcheck

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// DefaultShards is the number of partitions of the descriptor table used when
// no WithShards option is given.
const DefaultShards = 64

// Validator is a Checker tracking the state of descriptors in a table
// partitioned by descriptor number. Checks on the same descriptor are
// linearizable, checks on descriptors of different partitions never contend.
//
// Closing a descriptor clears Opened and sets Closed, the Socket kind is kept.
// Records of closed descriptors are retained so that using a number after it
// was closed is detected. When a descriptor number is opened again the stale
// record is reset.
type Validator struct {
	shards  []shard
	report  Reporter
	metrics *metrics
}

type shard struct {
	mutex sync.Mutex
	state map[int]Flags
	_     [48]byte // pad to a cache line
}

// Option configures a Validator.
type Option func(*Validator)

// WithShards sets the number of partitions of the descriptor table.
func WithShards(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.shards = make([]shard, n)
		}
	}
}

// WithReporter sets the Reporter receiving violations. A nil reporter
// discards them.
func WithReporter(r Reporter) Option {
	return func(v *Validator) { v.report = r }
}

// New constructs a Validator. Unless configured otherwise, violations are
// logged to the standard logrus logger, each one of them.
func New(options ...Option) *Validator {
	v := &Validator{
		shards:  make([]shard, DefaultShards),
		report:  LogReporter(logrus.StandardLogger(), 0),
		metrics: newMetrics(),
	}
	for _, opt := range options {
		opt(v)
	}
	for i := range v.shards {
		v.shards[i].state = make(map[int]Flags)
	}
	return v
}

func (v *Validator) shard(fd int) *shard {
	return &v.shards[fd%len(v.shards)]
}

// Check satisfies the Checker interface.
//
// Negative descriptors are not tracked, the check succeeds and the system
// call is left to report EBADF.
func (v *Validator) Check(site Site, msg string, fd int, required, forbidden, apply Flags) bool {
	if fd < 0 {
		return true
	}
	v.metrics.check()
	s := v.shard(fd)
	s.mutex.Lock()

	state := s.state[fd]
	if apply.Has(Opened) && state.Has(Closed) {
		// The number was released by a close and handed out again by the
		// kernel, the history belongs to the previous descriptor.
		state = 0
	}

	if !state.Has(required) || (state&forbidden) != 0 {
		s.mutex.Unlock()
		violation := &Violation{
			Site:      site,
			Message:   msg,
			FD:        fd,
			State:     state,
			Required:  required,
			Forbidden: forbidden,
			Apply:     apply,
		}
		v.metrics.violation(msg)
		if v.report != nil {
			v.report.Report(violation)
		}
		return false
	}

	state |= apply
	if apply.Has(Closed) {
		state &^= Opened
	}
	s.state[fd] = state
	s.mutex.Unlock()
	return true
}

// State satisfies the Checker interface.
func (v *Validator) State(fd int) Flags {
	if fd < 0 {
		return 0
	}
	s := v.shard(fd)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state[fd]
}

// Forget drops the record of fd.
func (v *Validator) Forget(fd int) {
	if fd < 0 {
		return
	}
	s := v.shard(fd)
	s.mutex.Lock()
	delete(s.state, fd)
	s.mutex.Unlock()
}

// Len returns the number of descriptor records, including closed ones.
func (v *Validator) Len() int {
	n := 0
	for i := range v.shards {
		s := &v.shards[i]
		s.mutex.Lock()
		n += len(s.state)
		s.mutex.Unlock()
	}
	return n
}

// Describe satisfies the prometheus.Collector interface.
func (v *Validator) Describe(ch chan<- *prometheus.Desc) {
	v.metrics.describe(ch)
	ch <- trackedDesc
}

// Collect satisfies the prometheus.Collector interface.
func (v *Validator) Collect(ch chan<- prometheus.Metric) {
	v.metrics.collect(ch)
	ch <- prometheus.MustNewConstMetric(trackedDesc, prometheus.GaugeValue, float64(v.Len()))
}

var (
	_ Checker              = (*Validator)(nil)
	_ prometheus.Collector = (*Validator)(nil)
)
