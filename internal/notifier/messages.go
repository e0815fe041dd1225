package notifier

import (
	"fmt"

	"github.com/fathima-sithara/moms/internal/models"
)

func render(ev *models.Event) (title, body string) {
	d := ev.Data
	switch ev.Type {
	case models.EventOrderPlaced:
		return "New order",
			fmt.Sprintf("%s ordered %s for %s (%s items, total %s).", d["user_name"], d["meal_type"], d["date"], d["item_count"], d["total"])
	case models.EventOrderStatusChanged:
		return "Order " + d["status"],
			fmt.Sprintf("Your %s order for %s is now %s.", d["meal_type"], d["date"], d["status"])
	case models.EventBillGenerated:
		return "New bill",
			fmt.Sprintf("A bill of %s for %s to %s has been issued. Due %s.", d["amount"], d["period_start"], d["period_end"], d["due_date"])
	case models.EventPaymentRecorded:
		return "Payment submitted",
			fmt.Sprintf("%s submitted a payment of %s for %s.", d["user_name"], d["amount"], d["house_name"])
	case models.EventPaymentConfirmed:
		return "Payment confirmed",
			fmt.Sprintf("Your payment of %s has been confirmed.", d["amount"])
	case models.EventPaymentRejected:
		return "Payment rejected",
			fmt.Sprintf("Your payment of %s was rejected: %s", d["amount"], d["reason"])
	}
	return string(ev.Type), ""
}

// smsWorthy limits SMS to events a user acts on.
func smsWorthy(t models.EventType) bool {
	switch t {
	case models.EventOrderStatusChanged, models.EventBillGenerated, models.EventPaymentConfirmed, models.EventPaymentRejected:
		return true
	}
	return false
}
