// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package workflow

import (
	"slices"
	"time"

	"postdeck/internal/models"
)

// SlotLookahead is how many days SuggestSlot searches.
const SlotLookahead = 30

// bestHours lists the preferred posting hours per platform, indexed by
// weekday (Sunday first).
var bestHours = map[models.Platform][7][]int{
	models.PlatformInstagram: {{10, 15}, {9, 13}, {9, 13}, {9, 13}, {9, 13}, {9, 13}, {10, 14}},
	models.PlatformTikTok:    {{12, 20}, {9, 14}, {9, 14}, {9, 14}, {9, 14}, {9, 14}, {12, 20}},
	models.PlatformGoogle:    {{12, 20}, {9, 14}, {9, 14}, {9, 14}, {9, 14}, {9, 14}, {12, 20}},
	models.PlatformLinkedIn:  {{}, {9}, {9}, {9}, {9}, {9}, {}},
	models.PlatformFacebook:  {{11, 16}, {9, 14}, {9, 14}, {9, 14}, {9, 14}, {9, 14}, {11, 16}},
	models.PlatformYouTube:   {{12}, {12}, {12}, {12}, {12}, {12}, {12}},
	models.PlatformPinterest: {{10, 20}, {8, 12}, {8, 12}, {8, 12}, {8, 12}, {8, 12}, {10, 20}},
}

// SuggestSlot returns the first preferred hour of any of platforms after
// now that no other post of the board already takes. taken holds the
// publish dates of the board's scheduled posts; two dates collide when
// they fall in the same hour. Without a free preferred hour in the next
// SlotLookahead days it returns the next full hour. Hours are read in
// now's location.
func SuggestSlot(platforms []models.Platform, taken []time.Time, now time.Time) time.Time {
	busy := make(map[int64]bool, len(taken))
	for _, t := range taken {
		busy[hourOf(t)] = true
	}

	for d := 0; d < SlotLookahead; d++ {
		day := now.AddDate(0, 0, d)
		var hours []int
		for _, p := range platforms {
			for _, h := range bestHours[p][day.Weekday()] {
				if !slices.Contains(hours, h) {
					hours = append(hours, h)
				}
			}
		}
		slices.Sort(hours)
		for _, h := range hours {
			slot := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, now.Location())
			if !slot.After(now) || busy[hourOf(slot)] {
				continue
			}
			return slot
		}
	}
	return now.Truncate(time.Hour).Add(time.Hour)
}

func hourOf(t time.Time) int64 {
	return t.Truncate(time.Hour).Unix()
}
