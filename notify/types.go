// Package notify sends push notifications about matches and user state to
// registered Android clients.
package notify

import "strconv"

// NotificationType is the message_type discriminator carried by every payload.
type NotificationType int

const (
	UpcomingMatch         NotificationType = 0
	MatchScore            NotificationType = 1
	LevelStarting         NotificationType = 2
	AllianceSelection     NotificationType = 3
	Awards                NotificationType = 4
	MediaPosted           NotificationType = 5
	DistrictPointsUpdated NotificationType = 6
	ScheduleUpdated       NotificationType = 7
	FinalResults          NotificationType = 8
	Ping                  NotificationType = 9
	Broadcast             NotificationType = 10
	MatchVideo            NotificationType = 11
	EventMatchVideo       NotificationType = 12

	// Sent to a user's other devices so they resync.
	UpdateFavorites     NotificationType = 100
	UpdateSubscriptions NotificationType = 101

	Verification NotificationType = 200
)

var typeNames = map[NotificationType]string{
	UpcomingMatch:         "upcoming_match",
	MatchScore:            "match_score",
	LevelStarting:         "starting_comp_level",
	AllianceSelection:     "alliance_selection",
	Awards:                "awards_posted",
	MediaPosted:           "media_posted",
	DistrictPointsUpdated: "district_points_updated",
	ScheduleUpdated:       "schedule_updated",
	FinalResults:          "final_results",
	Ping:                  "ping",
	Broadcast:             "broadcast",
	MatchVideo:            "match_video",
	EventMatchVideo:       "event_match_video",
	UpdateFavorites:       "update_favorites",
	UpdateSubscriptions:   "update_subscriptions",
	Verification:          "verification",
}

// String returns the type's wire name, or its code when it has none.
func (t NotificationType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

// ClientOS identifies the platform a client id was registered on.
type ClientOS string

const (
	OSAndroid ClientOS = "android"
	OSIOS     ClientOS = "ios"
)
