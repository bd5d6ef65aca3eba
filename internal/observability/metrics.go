package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CodecMetrics counts codec traffic by message type. It satisfies
// protocol.Recorder.
type CodecMetrics struct {
	encoded       *prometheus.CounterVec
	decoded       *prometheus.CounterVec
	encodedBytes  *prometheus.CounterVec
	decodedBytes  *prometheus.CounterVec
	decodeFailure *prometheus.CounterVec
	frameSize     *prometheus.HistogramVec
}

func NewCodecMetrics(namespace string) *CodecMetrics {
	return &CodecMetrics{
		encoded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "codec",
				Name:      "encoded_messages_total",
				Help:      "Messages framed for the wire.",
			},
			[]string{"type"},
		),
		decoded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "codec",
				Name:      "decoded_messages_total",
				Help:      "Messages rebuilt from the wire.",
			},
			[]string{"type"},
		),
		encodedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "codec",
				Name:      "encoded_bytes_total",
				Help:      "Framed bytes written, header included.",
			},
			[]string{"type"},
		),
		decodedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "codec",
				Name:      "decoded_bytes_total",
				Help:      "Framed bytes read, header included.",
			},
			[]string{"type"},
		),
		decodeFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "codec",
				Name:      "decode_failures_total",
				Help:      "Frames that could not be decoded.",
			},
			[]string{"type", "reason"},
		),
		frameSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "codec",
				Name:      "frame_bytes",
				Help:      "Framed message size in bytes.",
				Buckets:   prometheus.ExponentialBuckets(32, 4, 8),
			},
			[]string{"direction"},
		),
	}
}

// Register adds every collector to reg.
func (m *CodecMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *CodecMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.encoded, m.decoded, m.encodedBytes, m.decodedBytes, m.decodeFailure, m.frameSize}
}

func (m *CodecMetrics) ObserveEncode(messageType string, bytes int) {
	m.encoded.WithLabelValues(messageType).Inc()
	m.encodedBytes.WithLabelValues(messageType).Add(float64(bytes))
	m.frameSize.WithLabelValues("out").Observe(float64(bytes))
}

func (m *CodecMetrics) ObserveDecode(messageType string, bytes int) {
	m.decoded.WithLabelValues(messageType).Inc()
	m.decodedBytes.WithLabelValues(messageType).Add(float64(bytes))
	m.frameSize.WithLabelValues("in").Observe(float64(bytes))
}

func (m *CodecMetrics) ObserveDecodeFailure(messageType string, reason string) {
	m.decodeFailure.WithLabelValues(messageType, reason).Inc()
}

var (
	registerOnce   sync.Once
	defaultMetrics *CodecMetrics
)

// DefaultCodecMetrics returns process-wide codec metrics registered with
// the default Prometheus registry. The namespace of the first call wins.
func DefaultCodecMetrics(namespace string) *CodecMetrics {
	registerOnce.Do(func() {
		defaultMetrics = NewCodecMetrics(namespace)
		prometheus.MustRegister(defaultMetrics.collectors()...)
	})
	return defaultMetrics
}
