package common

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
	"wanderlust/src/db"
	"wanderlust/src/lib"
	"wanderlust/src/models"
	"wanderlust/src/types"
	"wanderlust/src/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

const (
	maxNotificationAttempts = 5
	drainBatchSize          = 50
	drainInterval           = 30 * time.Second
	staleClaimAge           = 10 * time.Minute
)

// overlapping in-process triggers (scheduler tick, request-path kick, boot
// sweep) collapse into one running drain
var drainMu sync.Mutex

// StartNotificationWorker schedules the outbox drain. Delivery never runs on
// the request path; a failed send only moves the row's next_run_at forward.
func StartNotificationWorker() error {
	releaseStaleClaims()
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	j, err := sched.NewJob(
		gocron.DurationJob(drainInterval),
		gocron.NewTask(DrainNotificationOutbox),
	)
	if err != nil {
		log.Printf("Error scheduling notification worker: %s\n", err.Error())
		return err
	}
	log.Printf("Notification worker scheduled: %s\n", j.ID().String())
	sched.Start()
	// pick up rows left over from a previous process
	go DrainNotificationOutbox()
	return nil
}

// releaseStaleClaims returns rows a crashed drain left mid-flight to the
// pending pool. The age guard keeps claims held by a live sibling process.
func releaseStaleClaims() {
	db := db.GetDb()
	res := db.
		Model(&models.NotificationJob{}).
		Where("status = ? AND updated_at < ?", types.NOTIFICATION_SENDING, time.Now().Add(-staleClaimAge)).
		Update("status", types.NOTIFICATION_PENDING)
	if res.Error != nil {
		log.Printf("[outbox] Error releasing stale claims: %s\n", res.Error.Error())
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("[outbox] Released %d stale claims\n", res.RowsAffected)
	}
}

// DrainNotificationOutbox delivers every due pending job. Channels are
// failure-isolated: one bad row never stops the batch. Each row is claimed
// with a conditional status flip before delivery, so a drain racing another
// process sends nothing twice.
func DrainNotificationOutbox() {
	if !drainMu.TryLock() {
		return
	}
	defer drainMu.Unlock()
	db := db.GetDb()
	var jobs []models.NotificationJob
	err := db.
		Model(&models.NotificationJob{}).
		Where(&models.NotificationJob{Status: types.NOTIFICATION_PENDING}).
		Where("next_run_at <= ?", time.Now()).
		Order("next_run_at asc").
		Limit(drainBatchSize).
		Find(&jobs).
		Error
	if err != nil {
		log.Printf("[outbox] Error retrieving notification jobs: %s\n", err.Error())
		return
	}
	if len(jobs) == 0 {
		return
	}
	log.Printf("[outbox] Found %d pending notification jobs\n", len(jobs))
	for i := range jobs {
		job := jobs[i]
		if !claimNotificationJob(db, &job) {
			// another drain got there first
			continue
		}
		if err := deliverNotification(&job); err != nil {
			log.Printf("[outbox] Delivery failed for job %s (%s): %s\n", job.ID, job.Channel, err.Error())
			markNotificationFailed(db, &job, err)
			continue
		}
		if err := db.
			Model(&models.NotificationJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]any{"status": types.NOTIFICATION_SENT, "attempts": job.Attempts + 1}).
			Error; err != nil {
			log.Printf("[outbox] Error marking job %s sent: %s\n", job.ID, err.Error())
		}
	}
}

// claimNotificationJob flips the row pending -> sending. The conditional
// update is the claim: of two overlapping drains only one sees a row
// affected.
func claimNotificationJob(db *gorm.DB, job *models.NotificationJob) bool {
	res := db.
		Model(&models.NotificationJob{}).
		Where("id = ? AND status = ?", job.ID, types.NOTIFICATION_PENDING).
		Update("status", types.NOTIFICATION_SENDING)
	if res.Error != nil {
		log.Printf("[outbox] Error claiming job %s: %s\n", job.ID, res.Error.Error())
		return false
	}
	return res.RowsAffected == 1
}

func markNotificationFailed(db *gorm.DB, job *models.NotificationJob, cause error) {
	attempts := job.Attempts + 1
	status := types.NOTIFICATION_PENDING
	if attempts >= maxNotificationAttempts {
		status = types.NOTIFICATION_FAILED
		log.Printf("[outbox] Giving up on job %s after %d attempts\n", job.ID, attempts)
	}
	msg := cause.Error()
	if err := db.
		Model(&models.NotificationJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":      status,
			"attempts":    attempts,
			"next_run_at": time.Now().Add(NotificationBackoff(attempts)),
			"last_error":  msg,
		}).
		Error; err != nil {
		log.Printf("[outbox] Error recording failure for job %s: %s\n", job.ID, err.Error())
	}
}

// NotificationBackoff doubles the delay per attempt: 2m, 4m, 8m, ...
func NotificationBackoff(attempts uint) time.Duration {
	return time.Minute * (1 << attempts)
}

func deliverNotification(job *models.NotificationJob) error {
	raw, err := json.Marshal(job.Payload)
	if err != nil {
		return err
	}
	bookingId := gjson.GetBytes(raw, "booking_id").String()
	if bookingId == "" {
		return fmt.Errorf("job %s has no booking reference", job.ID)
	}
	db := db.GetDb()
	var booking models.Booking
	if err := db.
		Model(&models.Booking{}).
		Where("id = ?", bookingId).
		Preload("Listing").
		Preload("Listing.Owner").
		Preload("Traveler").
		First(&booking).
		Error; err != nil {
		return err
	}
	switch job.Channel {
	case types.CHANNEL_TICKET_EMAIL:
		return SendTicketEmail(&booking)
	case types.CHANNEL_HOST_EMAIL:
		return SendHostEmail(&booking)
	default:
		return fmt.Errorf("unknown notification channel %q", job.Channel)
	}
}

// SendTicketEmail renders the receipt, converts it to PDF and mails it to
// the traveler with the ticket attached.
func SendTicketEmail(booking *models.Booking) error {
	if booking.Traveler == nil || booking.Traveler.Email == "" {
		return fmt.Errorf("booking %s has no traveler email", booking.ID)
	}
	pdf, err := utils.TicketPDF(booking)
	if err != nil {
		return err
	}
	title := ""
	if booking.Listing != nil {
		title = booking.Listing.Title
	}
	body := fmt.Sprintf(`<h3>Hi %s,</h3>
<p>Your booking for <b>%s</b> is confirmed!</p>
<p>Please find your official ticket attached to this email.</p>
<br>
<p>Regards,<br>Team Wanderlust</p>`, booking.Traveler.Username, title)
	send := lib.GetMailSender()
	return send(&lib.SendMailInput{
		From:     os.Getenv("EMAIL_FROM"),
		FromName: "Wanderlust",
		To:       []string{booking.Traveler.Email},
		Subject:  fmt.Sprintf("Booking Confirmed! - %s", title),
		Body:     body,
		Html:     true,
		Attachments: []lib.MailAttachment{
			{Filename: fmt.Sprintf("Wanderlust_Ticket_%s.pdf", booking.ID), Content: pdf},
		},
	})
}

// SendHostEmail notifies the listing owner of the confirmed stay. A host
// without an email address is a skipped step, not a failure.
func SendHostEmail(booking *models.Booking) error {
	if booking.Listing == nil || booking.Listing.Owner == nil || booking.Listing.Owner.Email == "" {
		log.Printf("[outbox] Listing owner for booking %s has no email. Skipping\n", booking.ID)
		return nil
	}
	owner := booking.Listing.Owner
	body := fmt.Sprintf(`<h3>Hi %s,</h3>
<p><b>%s</b> has been booked from %s to %s for %d guest(s).</p>
<p>Total paid: &#8377;%d</p>
<br>
<p>Regards,<br>Team Wanderlust</p>`,
		owner.Username,
		booking.Listing.Title,
		booking.CheckIn.Format("02 Jan 2006"),
		booking.CheckOut.Format("02 Jan 2006"),
		booking.NumberOfGuests,
		booking.TotalPrice,
	)
	send := lib.GetMailSender()
	return send(&lib.SendMailInput{
		From:     os.Getenv("EMAIL_FROM"),
		FromName: "Wanderlust",
		To:       []string{owner.Email},
		Subject:  fmt.Sprintf("New booking - %s", booking.Listing.Title),
		Body:     body,
		Html:     true,
	})
}
