package model

// All lists every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Tag{},
		&Document{},
		&Question{},
		&Group{},
		&GroupPost{},
		&GroupReply{},
		&GroupJoinRequest{},
		&Notification{},
		&JWTTokenBlacklist{},
		&CronJobLog{},
	}
}
