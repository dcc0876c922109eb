package session

import (
	"slices"
	"time"
)

type HostStatus string

const (
	HostStatusOnline     HostStatus = "online"
	HostStatusOffline    HostStatus = "offline"
	HostStatusConnecting HostStatus = "connecting"
)

func (s HostStatus) Valid() bool {
	switch s {
	case HostStatusOnline, HostStatusOffline, HostStatusConnecting:
		return true
	default:
		return false
	}
}

// HostSettings records device and media intent. Device ids are opaque.
type HostSettings struct {
	IsMicrophoneEnabled  bool   `json:"isMicrophoneEnabled"`
	IsCameraEnabled      bool   `json:"isCameraEnabled"`
	IsScreenShareEnabled bool   `json:"isScreenShareEnabled"`
	AudioInputDevice     string `json:"audioInputDevice,omitempty"`
	VideoInputDevice     string `json:"videoInputDevice,omitempty"`
	AudioOutputDevice    string `json:"audioOutputDevice,omitempty"`
}

func defaultHostSettings() HostSettings {
	return HostSettings{
		IsMicrophoneEnabled: true,
		IsCameraEnabled:     true,
	}
}

type Host struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Role         Role            `json:"role"`
	Status       HostStatus      `json:"status"`
	Permissions  HostPermissions `json:"permissions"`
	Settings     HostSettings    `json:"settings"`
	JoinedAt     time.Time       `json:"joinedAt"`
	LastActiveAt time.Time       `json:"lastActiveAt"`
}

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
	InvitationStatusExpired  InvitationStatus = "expired"
)

type Invitation struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"sessionId"`
	HostID      string           `json:"hostId"`
	Email       string           `json:"email"`
	Name        string           `json:"name"`
	Role        Role             `json:"role"`
	Permissions HostPermissions  `json:"permissions"`
	Status      InvitationStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	// AcceptedHostID is the host admitted by accepting this invitation.
	AcceptedHostID string `json:"acceptedHostId,omitempty"`
}

func (i *Invitation) expiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

type LayoutType string

const (
	LayoutSpotlight LayoutType = "spotlight"
	LayoutGrid      LayoutType = "grid"
	LayoutSidebar   LayoutType = "sidebar"
)

type Layout struct {
	Type           LayoutType `json:"type"`
	PrimaryHostID  string     `json:"primaryHostId,omitempty"`
	VisibleHostIDs []string   `json:"visibleHostIds"`
}

func (l Layout) clone() Layout {
	l.VisibleHostIDs = slices.Clone(l.VisibleHostIDs)
	if l.VisibleHostIDs == nil {
		l.VisibleHostIDs = []string{}
	}
	return l
}

type SessionSettings struct {
	MaxHosts              int             `json:"maxHosts"`
	AutoAcceptInvitations bool            `json:"autoAcceptInvitations"`
	DefaultRole           Role            `json:"defaultRole"`
	DefaultPermissions    HostPermissions `json:"defaultPermissions"`
}

// Session is the aggregate shared by every host of one live broadcast.
// Values handed out by the coordinator are deep copies.
type Session struct {
	ID            string            `json:"id"`
	StreamID      string            `json:"streamId"`
	Hosts         []Host            `json:"hosts"`
	Layout        Layout            `json:"layout"`
	PrimaryHostID string            `json:"primaryHostId,omitempty"`
	ActiveHostID  string            `json:"activeHostId,omitempty"`
	Connections   map[string]string `json:"connections"`
	StartedAt     time.Time         `json:"startedAt"`
	EndedAt       *time.Time        `json:"endedAt,omitempty"`
	Settings      SessionSettings   `json:"settings"`
}

func (s *Session) clone() *Session {
	c := *s
	c.Hosts = cloneHosts(s.Hosts)
	c.Layout = s.Layout.clone()
	c.Connections = make(map[string]string, len(s.Connections))
	for k, v := range s.Connections {
		c.Connections[k] = v
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

func (s *Session) hostIndex(hostID string) int {
	return slices.IndexFunc(s.Hosts, func(h Host) bool { return h.ID == hostID })
}

func (s *Session) hasHost(hostID string) bool {
	return s.hostIndex(hostID) >= 0
}

func cloneHosts(hosts []Host) []Host {
	if hosts == nil {
		return []Host{}
	}
	return slices.Clone(hosts)
}

// HostSettingsPatch carries the settings fields to change; nil fields are kept.
type HostSettingsPatch struct {
	IsMicrophoneEnabled  *bool   `json:"isMicrophoneEnabled,omitempty"`
	IsCameraEnabled      *bool   `json:"isCameraEnabled,omitempty"`
	IsScreenShareEnabled *bool   `json:"isScreenShareEnabled,omitempty"`
	AudioInputDevice     *string `json:"audioInputDevice,omitempty"`
	VideoInputDevice     *string `json:"videoInputDevice,omitempty"`
	AudioOutputDevice    *string `json:"audioOutputDevice,omitempty"`
}

func (p HostSettingsPatch) apply(s HostSettings) HostSettings {
	setIf(&s.IsMicrophoneEnabled, p.IsMicrophoneEnabled)
	setIf(&s.IsCameraEnabled, p.IsCameraEnabled)
	setIf(&s.IsScreenShareEnabled, p.IsScreenShareEnabled)
	setIf(&s.AudioInputDevice, p.AudioInputDevice)
	setIf(&s.VideoInputDevice, p.VideoInputDevice)
	setIf(&s.AudioOutputDevice, p.AudioOutputDevice)
	return s
}

type HostPermissionsPatch struct {
	CanControlStream  *bool `json:"canControlStream,omitempty"`
	CanShareScreen    *bool `json:"canShareScreen,omitempty"`
	CanManageChat     *bool `json:"canManageChat,omitempty"`
	CanInviteOthers   *bool `json:"canInviteOthers,omitempty"`
	CanUseAnnotations *bool `json:"canUseAnnotations,omitempty"`
	CanTriggerAlerts  *bool `json:"canTriggerAlerts,omitempty"`
	CanControlLayout  *bool `json:"canControlLayout,omitempty"`
	CanMuteOthers     *bool `json:"canMuteOthers,omitempty"`
}

func (p HostPermissionsPatch) apply(perm HostPermissions) HostPermissions {
	setIf(&perm.CanControlStream, p.CanControlStream)
	setIf(&perm.CanShareScreen, p.CanShareScreen)
	setIf(&perm.CanManageChat, p.CanManageChat)
	setIf(&perm.CanInviteOthers, p.CanInviteOthers)
	setIf(&perm.CanUseAnnotations, p.CanUseAnnotations)
	setIf(&perm.CanTriggerAlerts, p.CanTriggerAlerts)
	setIf(&perm.CanControlLayout, p.CanControlLayout)
	setIf(&perm.CanMuteOthers, p.CanMuteOthers)
	return perm
}

// HostUpdate is the partial update accepted by UpdateHostSettings.
type HostUpdate struct {
	Settings    *HostSettingsPatch    `json:"settings,omitempty"`
	Permissions *HostPermissionsPatch `json:"permissions,omitempty"`
	Status      *HostStatus           `json:"status,omitempty"`
}

// LayoutPatch is the partial update accepted by UpdateLayout. A nil
// VisibleHostIDs keeps the current list; an empty one clears it.
type LayoutPatch struct {
	Type           *LayoutType `json:"type,omitempty"`
	PrimaryHostID  *string     `json:"primaryHostId,omitempty"`
	VisibleHostIDs []string    `json:"visibleHostIds,omitempty"`
}

type CreateSessionInput struct {
	PrimaryHostID   string `json:"primaryHostId"`
	PrimaryHostName string `json:"primaryHostName,omitempty"`
	StreamID        string `json:"streamId,omitempty"`
}

type InviteInput struct {
	InviterHostID string `json:"inviterHostId"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          Role   `json:"role"`
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
