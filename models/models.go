package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Office{},
		&User{},
		&Client{},
		&Case{},
		&DocketEntry{},
		&Deadline{},
		&Hearing{},
		&FeeContract{},
		&FinancialEntry{},
		&WhatsAppConfig{},
		&WhatsAppMessage{},
		&Conversation{},
		&ChatbotFlow{},
		&WebhookEvent{},
		&NoteCategory{},
		&Note{},
		&AuditLog{},
	}
}
