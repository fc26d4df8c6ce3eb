// Package metrics exposes Prometheus counters for moderation activity,
// served on the application's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LocksTotal counts chats locked after a mention
	LocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlock_locks_total",
		Help: "Number of chats locked.",
	})

	// UnlocksTotal counts unlocks by cause (reactions, admin, sweeper)
	UnlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatlock_unlocks_total",
		Help: "Number of chats unlocked, by cause.",
	}, []string{"cause"})

	// DeletedMessagesTotal counts messages deleted in locked chats
	DeletedMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlock_deleted_messages_total",
		Help: "Number of messages deleted in locked chats.",
	})

	// RestrictedUsersTotal counts send-restrictions applied to users
	RestrictedUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlock_restricted_users_total",
		Help: "Number of users restricted in locked chats.",
	})

	// PlatformErrorsTotal counts failed Telegram API calls by operation
	PlatformErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatlock_platform_errors_total",
		Help: "Number of failed Telegram API calls, by operation.",
	}, []string{"operation"})
)
