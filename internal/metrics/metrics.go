package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dvsconv"

var (
	Registry = prometheus.NewRegistry()

	RecordsEncodedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "records_total",
		Help:      "Number of events read from the row source",
	})

	FramesWrittenCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "frames_total",
		Help:      "Number of frames written",
	})

	BytesWrittenCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "bytes_total",
		Help:      "Number of bytes written, length prefixes included",
	})

	MalformedRowCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "malformed_rows_total",
		Help:      "Number of rows that failed to parse",
	})

	FramesDecodedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "frames_total",
		Help:      "Number of frames decoded",
	})

	RecordsDecodedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "records_total",
		Help:      "Number of events decoded",
	})

	CountMismatchCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "count_mismatch_total",
		Help:      "Frames whose rising+falling counts disagree with their event count",
	})

	FramePayloadBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "frame_payload_bytes",
		Help:      "Payload size of frames",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
	}, []string{"direction"})
)

func init() {
	Registry.MustRegister(
		RecordsEncodedCounter,
		FramesWrittenCounter,
		BytesWrittenCounter,
		MalformedRowCounter,
		FramesDecodedCounter,
		RecordsDecodedCounter,
		CountMismatchCounter,
		FramePayloadBytes,
	)
}

// Sample is a flattened metric value for display.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Dump gathers every registered metric. Histograms are reported as
// their sample count and sum.
func Dump() ([]Sample, error) {
	families, err := Registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
			}
			labels := strings.Join(pairs, ",")
			switch {
			case m.GetCounter() != nil:
				out = append(out, Sample{Name: mf.GetName(), Labels: labels, Value: m.GetCounter().GetValue()})
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				out = append(out,
					Sample{Name: mf.GetName() + "_count", Labels: labels, Value: float64(h.GetSampleCount())},
					Sample{Name: mf.GetName() + "_sum", Labels: labels, Value: h.GetSampleSum()},
				)
			}
		}
	}
	return out, nil
}
