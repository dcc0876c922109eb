package session

// Role is the part a host plays in a multi-host session.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleCoHost    Role = "co-host"
	RoleGuest     Role = "guest"
	RoleModerator Role = "moderator"
)

func (r Role) Valid() bool {
	switch r {
	case RolePrimary, RoleCoHost, RoleGuest, RoleModerator:
		return true
	default:
		return false
	}
}

// HostPermissions is the capability set a host holds.
type HostPermissions struct {
	CanControlStream  bool `json:"canControlStream"`
	CanShareScreen    bool `json:"canShareScreen"`
	CanManageChat     bool `json:"canManageChat"`
	CanInviteOthers   bool `json:"canInviteOthers"`
	CanUseAnnotations bool `json:"canUseAnnotations"`
	CanTriggerAlerts  bool `json:"canTriggerAlerts"`
	CanControlLayout  bool `json:"canControlLayout"`
	CanMuteOthers     bool `json:"canMuteOthers"`
}

var rolePermissions = map[Role]HostPermissions{
	RolePrimary: {
		CanControlStream:  true,
		CanShareScreen:    true,
		CanManageChat:     true,
		CanInviteOthers:   true,
		CanUseAnnotations: true,
		CanTriggerAlerts:  true,
		CanControlLayout:  true,
		CanMuteOthers:     true,
	},
	RoleCoHost: {
		CanShareScreen:    true,
		CanManageChat:     true,
		CanUseAnnotations: true,
		CanTriggerAlerts:  true,
	},
	RoleGuest: {
		CanUseAnnotations: true,
	},
	RoleModerator: {
		CanManageChat:    true,
		CanTriggerAlerts: true,
		CanMuteOthers:    true,
	},
}

// DefaultPermissions returns the capability set granted to role on admission.
// Unknown roles get no capabilities.
func DefaultPermissions(role Role) HostPermissions {
	return rolePermissions[role]
}
