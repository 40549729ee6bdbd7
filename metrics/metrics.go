package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements domain.Metrics over Prometheus collectors.
type Metrics struct {
	connectionsOpen    prometheus.Gauge
	roomsActive        prometheus.Gauge
	messagesReceived   prometheus.Counter
	messagesDelivered  prometheus.Counter
	deliveriesDropped  prometheus.Counter
	handshakesRejected prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		connectionsOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connections_open",
			Help: "Currently open websocket sessions.",
		}),
		roomsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_rooms_active",
			Help: "Rooms with at least one member.",
		}),
		messagesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_messages_received_total",
			Help: "Inbound messages read from sessions.",
		}),
		messagesDelivered: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_messages_delivered_total",
			Help: "Outbound deliveries queued to recipients.",
		}),
		deliveriesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_deliveries_dropped_total",
			Help: "Deliveries dropped because the recipient was slow or gone.",
		}),
		handshakesRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_handshakes_rejected_total",
			Help: "Upgrade requests torn down for lacking a session identifier.",
		}),
	}
}

func (m *Metrics) ConnectionOpened()  { m.connectionsOpen.Inc() }
func (m *Metrics) ConnectionClosed()  { m.connectionsOpen.Dec() }
func (m *Metrics) RoomOpened()        { m.roomsActive.Inc() }
func (m *Metrics) RoomClosed()        { m.roomsActive.Dec() }
func (m *Metrics) MessageReceived()   { m.messagesReceived.Inc() }
func (m *Metrics) MessageDelivered()  { m.messagesDelivered.Inc() }
func (m *Metrics) DeliveryDropped()   { m.deliveriesDropped.Inc() }
func (m *Metrics) HandshakeRejected() { m.handshakesRejected.Inc() }

// Handler exposes the registry for scraping.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
