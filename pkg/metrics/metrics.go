package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

const namespace = "ordercache"

// Recorder exposes cache activity as Prometheus collectors. It implements
// cache.Observer.
type Recorder struct {
	ordersAdded     *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	ordersCancelled *prometheus.CounterVec
	matchedQty      *prometheus.GaugeVec
	openOrders      *prometheus.GaugeVec
	opDuration      *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them on reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		ordersAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_added_total",
			Help:      "Orders accepted into the cache",
		}, []string{"security", "side"}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Orders refused by the cache",
		}, []string{"reason"}),
		ordersCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "Orders removed from the cache",
		}, []string{"security"}),
		matchedQty: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "matched_quantity",
			Help:      "Quantity currently crossed per security",
		}, []string{"security"}),
		openOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_orders",
			Help:      "Orders resting per security",
		}, []string{"security"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_seconds",
			Help:      "Time spent per cache operation, including lock wait",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{
		r.ordersAdded,
		r.ordersRejected,
		r.ordersCancelled,
		r.matchedQty,
		r.openOrders,
		r.opDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) OrderAdded(o order.Order) {
	r.ordersAdded.WithLabelValues(o.SecurityID, o.Side.String()).Inc()
}

func (r *Recorder) OrderRejected(reason string) {
	r.ordersRejected.WithLabelValues(reason).Inc()
}

func (r *Recorder) OrdersCancelled(security string, n int) {
	r.ordersCancelled.WithLabelValues(security).Add(float64(n))
}

func (r *Recorder) SecurityUpdated(security string, matched uint64, open int) {
	r.matchedQty.WithLabelValues(security).Set(float64(matched))
	r.openOrders.WithLabelValues(security).Set(float64(open))
}

func (r *Recorder) OperationObserved(op string, d time.Duration) {
	r.opDuration.WithLabelValues(op).Observe(d.Seconds())
}
