package model

// Settings is the admin-editable configuration document, persisted as a
// single row in the `settings` table.
type Settings struct {
    NotificationSettings NotificationSettings `json:"notificationSettings"`
    EmailSettings        EmailSettings        `json:"emailSettings"`
    SystemSettings       SystemSettings       `json:"systemSettings"`
}

// SecretMask stands in for a stored secret in settings responses.
const SecretMask = "********"

// Redacted returns a copy safe to send to clients: a set SMTP password is
// replaced by SecretMask.
func (s Settings) Redacted() *Settings {
    if s.EmailSettings.SMTPPassword != "" {
        s.EmailSettings.SMTPPassword = SecretMask
    }
    return &s
}

type NotificationSettings struct {
    EmailNotifications   bool `json:"emailNotifications"`
    PushNotifications    bool `json:"pushNotifications"`
    WarrantyExpiryAlerts bool `json:"warrantyExpiryAlerts"`
    SystemAlerts         bool `json:"systemAlerts"`
}

type EmailSettings struct {
    SMTPHost     string `json:"smtpHost"`
    SMTPPort     string `json:"smtpPort"`
    SMTPUser     string `json:"smtpUser"`
    SMTPPassword string `json:"smtpPassword"`
    FromEmail    string `json:"fromEmail"`
    FromName     string `json:"fromName"`
}

type SystemSettings struct {
    MaintenanceMode   bool `json:"maintenanceMode"`
    AllowRegistration bool `json:"allowRegistration"`
    MaxLoginAttempts  int  `json:"maxLoginAttempts"`
    SessionTimeout    int  `json:"sessionTimeout"` // minutes
}

// MonthCount is one bucket of a per-month aggregation.
type MonthCount struct {
    Month string `json:"month"`
    Count int    `json:"count"`
}

// StatusCount is one row of a group-by-status aggregation.
type StatusCount struct {
    Status WarrantyStatus `json:"status" db:"status"`
    Count  int            `json:"count" db:"count"`
}
