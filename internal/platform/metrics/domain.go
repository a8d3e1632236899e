package metrics

// Pipeline counters shared by the crewboard services.
var (
	CommandsAccepted = NewCounterVec(Opts{
		Name: "crewboard_commands_accepted_total",
		Help: "Task commands accepted by the command API.",
	}, []string{"action"})

	CommandsRejected = NewCounterVec(Opts{
		Name: "crewboard_commands_rejected_total",
		Help: "Task commands rejected at validation.",
	}, []string{"action"})

	EventsPersisted = NewCounterVec(Opts{
		Name: "crewboard_events_persisted_total",
		Help: "Task events applied to the projection.",
	}, []string{"event_type"})

	NotificationsDispatched = NewCounterVec(Opts{
		Name: "crewboard_notifications_dispatched_total",
		Help: "Notifications handed to the external webhook.",
	}, []string{"kind", "outcome"})

	ActiveStreams = NewGauge(Opts{
		Name: "crewboard_sse_streams_active",
		Help: "Open SSE snapshot subscriptions.",
	})
)

func init() {
	Default.MustRegister(
		CommandsAccepted,
		CommandsRejected,
		EventsPersisted,
		NotificationsDispatched,
		ActiveStreams,
	)
}
