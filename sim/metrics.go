// Tracks per-tier service statistics and renders the end-of-run summary.
// Counters are owned by the Simulator instance (not package globals) so
// parallel runs and tests never share state.

package sim

import (
	"fmt"
	"io"

	"github.com/tiersim/tiersim/sim/metrics"
)

// ServiceCounters aggregates per-tier reads/writes served and cumulative
// served virtual time. Each bucket is updated exactly once per completed
// request and is monotonically non-decreasing.
type ServiceCounters struct {
	Reads    [NumTiers]int64
	Writes   [NumTiers]int64
	ServedNS [NumTiers]int64
}

// RecordCompletion accounts one completed request.
func (c *ServiceCounters) RecordCompletion(t Tier, op Op, servedNS int64) {
	if op == OpWrite {
		c.Writes[t]++
	} else {
		c.Reads[t]++
	}
	c.ServedNS[t] += servedNS
	metrics.RequestsServed.WithLabelValues(t.String(), op.String()).Inc()
	metrics.ServedTime.WithLabelValues(t.String()).Add(float64(servedNS) / 1e9)
}

// TotalOperations returns the number of completed requests across all tiers.
func (c *ServiceCounters) TotalOperations() int64 {
	var total int64
	for t := 0; t < NumTiers; t++ {
		total += c.Reads[t] + c.Writes[t]
	}
	return total
}

// AverageServedNS returns the mean served time on a tier, 0 when the tier
// served nothing.
func (c *ServiceCounters) AverageServedNS(t Tier) float64 {
	ops := c.Reads[t] + c.Writes[t]
	if ops == 0 {
		return 0
	}
	return float64(c.ServedNS[t]) / float64(ops)
}

// WriteSummary renders the plain-text end-of-run summary: total operations,
// per-tier read/write counts, per-tier total and average served time, and
// the migration statistics block.
func WriteSummary(w io.Writer, c *ServiceCounters, mig MigrationStats) error {
	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("Total of operations at file's traces:  %d\n", c.TotalOperations())
	for t := TierFast; t <= TierSlow; t++ {
		p("Numbers of Reads in %s tier:   %d\n", t, c.Reads[t])
		p("Numbers of Writes in %s tier:  %d\n", t, c.Writes[t])
	}
	for t := TierFast; t <= TierSlow; t++ {
		p("Total Served Time in %s tier:    %.5f [s]\n", t, float64(c.ServedNS[t])/1e9)
	}
	for t := TierFast; t <= TierSlow; t++ {
		p("Average Served Time in %s tier:  %.5f [ms]\n", t, c.AverageServedNS(t)/1e6)
	}

	p("--- Migration ---\n")
	p("Addresses tracked:     %d\n", mig.AddressesTracked)
	p("Hot addresses:         %d\n", mig.HotAddresses)
	p("Cold addresses:        %d\n", mig.ColdAddresses)
	p("Migrations enqueued:   %d\n", mig.Enqueued)
	p("Migrations completed:  %d\n", mig.Completed)
	p("Queue occupancy:       %d\n", mig.QueueLen)
	p("Average reward:        %.2f\n", mig.AverageReward)
	return err
}
