package engine

import (
	"fmt"

	"github.com/cestlavie/bakery/pkg/types"
)

// Notification copy. Plain text, one message per lifecycle event.

const deliveryTimeFormat = "2006-01-02 at 15:04"

func customerOrderCreated(name string, o *types.Order) (subject, body string) {
	subject = "We received your order"
	body = fmt.Sprintf("Hi %s,\n"+
		"We have received your order! Here are the details:\n"+
		"Delivery date: %s\n"+
		"Total price: %s\n"+
		"Status: %s\n",
		name, o.DeliverDate.Format(deliveryTimeFormat), o.TotalPrice.StringFixed(2), o.Status)
	return subject, body
}

func adminOrderCreated(customerName string, o *types.Order) (subject, body string) {
	subject = "New order received"
	body = fmt.Sprintf("A new order has been placed! Here are the details:\n"+
		"Customer: %s\n"+
		"Email: %s\n"+
		"Delivery date: %s\n",
		customerName, o.CustomerEmail, o.DeliverDate.Format(deliveryTimeFormat))
	return subject, body
}

func customerOrderAccepted(name string, o *types.Order) (subject, body string) {
	subject = "Your order has been accepted"
	body = fmt.Sprintf("Hi %s,\n"+
		"Your order has been accepted! Here are the details:\n"+
		"Order date: %s\n"+
		"Pickup date: %s\n"+
		"Total price: %s\n"+
		"Status: %s\n"+
		"Thank you for choosing C'est la Vie!",
		name, o.OrderDate.Format(deliveryTimeFormat), o.DeliverDate.Format(deliveryTimeFormat),
		o.TotalPrice.StringFixed(2), o.Status)
	return subject, body
}

func customerOrderDelivered(name string) (subject, body string) {
	subject = "Your order has been picked up"
	body = fmt.Sprintf("Hi %s,\n"+
		"Your order has been picked up!\n"+
		"Thank you again for choosing C'est la Vie!\n"+
		"We hope to see you soon!",
		name)
	return subject, body
}
