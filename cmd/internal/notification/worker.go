package notification

import (
	"context"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm"

	"medsched/cmd/internal/domain/entity"
	"medsched/cmd/internal/domain/schedule"
)

// Job asks the pool to notify an appointment's patient about one reminder
// tier.
type Job struct {
	Appointment *entity.Appointment
	Tier        string
}

// Sender sends a single web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers reminder notifications off the sweep goroutine, so a
// slow push service cannot stall the schedule.
type WorkerPool struct {
	size    int
	jobs    chan Job
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines; they run until ctx is cancelled.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	for {
		select {
		case job := <-wp.jobs:
			wp.deliver(ctx, job)
		case <-ctx.Done():
			log.Infof("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a reminder for delivery.
func (wp *WorkerPool) Dispatch(job Job) {
	wp.jobs <- job
}

func (wp *WorkerPool) deliver(ctx context.Context, job Job) {
	appt := job.Appointment

	var subscriptions []entity.PushSubscription
	err := wp.db.WithContext(ctx).
		Where("patient_id = ?", appt.PatientID).
		Find(&subscriptions).Error
	if err != nil {
		log.Errorf("failed to fetch subscriptions for patient %d: %v", appt.PatientID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload := []byte(wp.message(ctx, appt, job.Tier))
	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) message(ctx context.Context, appt *entity.Appointment, tier string) string {
	with := ""
	var employee entity.Employee
	err := wp.db.WithContext(ctx).
		Select("full_name").
		First(&employee, appt.EmployeeID).Error
	if err != nil {
		log.Errorf("failed to fetch employee %d: %v", appt.EmployeeID, err)
	} else if employee.FullName != "" {
		with = " with " + employee.FullName
	}

	lead := map[string]string{
		entity.Tier24h: "tomorrow",
		entity.Tier3h:  "in 3 hours",
		entity.Tier1h:  "in 1 hour",
	}[tier]

	return fmt.Sprintf("Reminder: your appointment%s is %s, on %s at %s.",
		with, lead, appt.Date, schedule.FormatClock(appt.StartMin))
}

func (wp *WorkerPool) send(ctx context.Context, sub entity.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Errorf("failed to send notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// The push service reports a gone subscription with 410; drop it so we
	// stop paying for dead endpoints.
	if resp.StatusCode == http.StatusGone {
		log.Infof("subscription %s expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Errorf("failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
