// Package calendar renders birthday calendars, one month at a time.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

// EmptyMonth is shown for months nobody has a birthday in.
const EmptyMonth = "No birthdays this month"

const embedColor = 0xf5a9b8

// MaxDescription is Discord's limit on embed description length, in characters.
const MaxDescription = 4096

// room kept free for the "and N more" tail
const tailRoom = 32

// Entry is a single birthday within a month.
type Entry struct {
	Name string
	Day  int
}

// Day is every entry sharing one day of the month.
type Day struct {
	Day   int
	Names []string
}

// Group sorts entries by day and merges entries sharing a day. Names keep the
// order they were given in.
func Group(entries []Entry) []Day {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Day < sorted[j].Day
	})

	var days []Day
	for _, entry := range sorted {
		if n := len(days); n > 0 && days[n-1].Day == entry.Day {
			days[n-1].Names = append(days[n-1].Names, entry.Name)
			continue
		}
		days = append(days, Day{Day: entry.Day, Names: []string{entry.Name}})
	}
	return days
}

// Build renders the calendar page for month.
func Build(month time.Month, entries []Entry) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🎂 %s", month),
		Color: embedColor,
	}

	days := Group(entries)
	if len(days) == 0 {
		embed.Description = EmptyMonth
		return embed
	}

	embed.Description = describe(days)
	return embed
}

// describe writes one line per day. Names that would push the text past
// MaxDescription are dropped from the end and counted in a tail line.
func describe(days []Day) string {
	var b strings.Builder
	length, hidden := 0, 0
	write := func(s string) {
		b.WriteString(s)
		length += utf8.RuneCountInString(s)
	}
	fits := func(s string) bool {
		return length+utf8.RuneCountInString(s) <= MaxDescription-tailRoom
	}

	for i, day := range days {
		if hidden > 0 {
			hidden += len(day.Names)
			continue
		}
		prefix := fmt.Sprintf("**%s**: ", humanize.Ordinal(day.Day))
		if i > 0 {
			prefix = "\n" + prefix
		}
		if !fits(prefix + day.Names[0]) {
			hidden += len(day.Names)
			continue
		}
		write(prefix)
		for n, name := range day.Names {
			if n > 0 {
				name = ", " + name
			}
			if !fits(name) {
				hidden += len(day.Names) - n
				break
			}
			write(name)
		}
	}
	if hidden > 0 {
		write(fmt.Sprintf("\n…and %d more", hidden))
	}
	return b.String()
}

// Year builds all twelve pages, January first. byMonth may be missing months.
func Year(byMonth map[time.Month][]Entry) []*discordgo.MessageEmbed {
	pages := make([]*discordgo.MessageEmbed, 12)
	for month := time.January; month <= time.December; month++ {
		pages[month-1] = Build(month, byMonth[month])
	}
	return pages
}
