package handler

import "strings"

// DemoAPIKey is the sentinel that keeps a request in demo mode. Requests with
// no key at all are treated the same way.
const DemoAPIKey = "demo-key"

// Canned demo replies, one per keyword category.
const (
	demoGreetingReply = "Hello! Welcome to SmartBotly. I'm here to help you with any questions about our services. What would you like to know?"

	demoHoursReply = "Our business hours are Monday-Friday, 9 AM to 6 PM EST. We're closed on weekends and major holidays. Is there anything else I can help you with?"

	demoPricingReply = "Our starter plan is $29/month and the professional plan is $79/month. All plans include a 14-day free trial, no credit card required. Would you like to know what each plan includes?"

	demoAppointmentReply = "I'd be happy to help you schedule an appointment! You can call us at (555) 123-4567 or use our online booking system. What day works best for you?"

	demoSupportReply = "I'm sorry you're running into trouble. You can reach our support team at support@smartbotly.com or keep chatting with me and I'll do my best to help. What seems to be the problem?"

	demoFallbackReply = "Thanks for your message! I'm here to help with any questions about our services, business hours, or to help you schedule an appointment. Could you tell me a bit more about what you're looking for?"
)

// demoCategories is matched in order against the lowercased message, so reply
// selection is deterministic even when a message hits several categories.
var demoCategories = []struct {
	keywords []string
	reply    string
}{
	{[]string{"hello", "hi", "hey", "good morning", "good afternoon"}, demoGreetingReply},
	{[]string{"hours", "open", "closed", "when are you"}, demoHoursReply},
	{[]string{"price", "pricing", "cost", "plan", "subscription"}, demoPricingReply},
	{[]string{"appointment", "book", "schedule", "reservation"}, demoAppointmentReply},
	{[]string{"help", "support", "problem", "issue", "broken"}, demoSupportReply},
}

// demoReply picks the canned response for the last user message. Single-word
// keywords must match a whole word ("hi" must not fire on "this"); phrases
// may appear anywhere.
func demoReply(message string) string {
	message = strings.ToLower(message)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(message, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	}) {
		words[w] = true
	}

	for _, cat := range demoCategories {
		for _, kw := range cat.keywords {
			if strings.ContainsRune(kw, ' ') {
				if strings.Contains(message, kw) {
					return cat.reply
				}
			} else if words[kw] {
				return cat.reply
			}
		}
	}
	return demoFallbackReply
}
