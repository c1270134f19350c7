package service

import (
	"sort"
	"strings"

	"uniconnect.app/campus/internal/modules/notification/dto"
)

var priorityRank = map[string]int{
	"urgent": 4,
	"high":   3,
	"normal": 2,
	"low":    1,
}

// PriorityRank orders priorities urgent > high > normal > low. Unknown
// values rank as normal.
func PriorityRank(priority string) int {
	if rank, ok := priorityRank[strings.ToLower(priority)]; ok {
		return rank
	}
	return priorityRank["normal"]
}

// UnreadCount counts entries not yet read by the viewer the list was built for.
func UnreadCount(list []dto.AnnotatedNotification) int {
	count := 0
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return count
}

// SortAndFilter returns a filtered, reordered copy of list. The input is not
// modified.
func SortAndFilter(list []dto.AnnotatedNotification, opts dto.ListOptions) []dto.AnnotatedNotification {
	out := make([]dto.AnnotatedNotification, 0, len(list))
	for _, n := range list {
		if opts.TypeFilter != "" && opts.TypeFilter != dto.FilterAll && n.Type != opts.TypeFilter {
			continue
		}
		switch opts.ReadFilter {
		case dto.FilterRead:
			if !n.Read {
				continue
			}
		case dto.FilterUnread:
			if n.Read {
				continue
			}
		}
		out = append(out, n)
	}

	switch opts.SortBy {
	case dto.SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Timestamp.Before(out[j].Timestamp)
		})
	case dto.SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return PriorityRank(out[i].Priority) > PriorityRank(out[j].Priority)
		})
	case dto.SortCourse:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Course < out[j].Course
		})
	default:
		sortNewest(out)
	}
	return out
}

func sortNewest(list []dto.AnnotatedNotification) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})
}
