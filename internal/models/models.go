package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Tenant{},
		&User{},
		&Project{},
		&ProjectCounter{},
		&Task{},
		&TaskHistory{},
		&Notification{},
	}
}
