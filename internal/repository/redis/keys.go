package redis

import "fmt"

const ns = "parkgo:v1"

func KeySelection(id string) string {
	return fmt.Sprintf("%s:selection:%s", ns, id)
}

func KeyConfirmation(id string) string {
	return fmt.Sprintf("%s:confirmation:%s", ns, id)
}

func KeyVerification(id string) string {
	return fmt.Sprintf("%s:verification:%s", ns, id)
}

func KeyTicketView(id string) string {
	return fmt.Sprintf("%s:ticket:%s:view", ns, id)
}

func KeyIdemPaymentCallback(confirmationID string) string {
	return fmt.Sprintf("%s:idem:payment:%s", ns, confirmationID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelSlotsChanged() string {
	return ns + ":slots:changed"
}
