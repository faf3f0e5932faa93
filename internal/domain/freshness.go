package domain

import "time"

// FreshnessInput carries the reported update times of the upstream sources.
type FreshnessInput struct {
	Now      time.Time
	Location *time.Location

	// LocationsLastModified is the Last-Modified header of the locations feed.
	LocationsLastModified time.Time
}

// CheckFreshness is the all-or-nothing gate evaluated before any
// computation. It requires that
//   - the locations feed LastStatisticsDate is yesterday or later,
//   - the hospitalization LastLoadStatisticsDate is yesterday or later,
//   - the locations feed was modified after today 00:00 UTC.
func CheckFreshness(in FreshnessInput, feeds Feeds) error {
	yesterday := Yesterday(in.Now, in.Location)

	reported, err := latestLocationStatistics(feeds.Locations)
	if err != nil {
		return err
	}
	if reported.Before(yesterday) {
		return &StaleSourceError{Feed: FeedLocations, Check: "LastStatisticsDate", Reported: reported, Threshold: yesterday}
	}

	reported, err = latestHospitalLoad(feeds.Hospitalizations)
	if err != nil {
		return err
	}
	if reported.Before(yesterday) {
		return &StaleSourceError{Feed: FeedHospitalization, Check: "LastLoadStatisticsDate", Reported: reported, Threshold: yesterday}
	}

	todayUTC := civilDate(in.Now.UTC())
	if !in.LocationsLastModified.After(todayUTC) {
		return &StaleSourceError{Feed: FeedLocations, Check: "Last-Modified", Reported: in.LocationsLastModified, Threshold: todayUTC}
	}
	return nil
}

func latestLocationStatistics(records []LocationRecord) (time.Time, error) {
	if len(records) == 0 {
		return time.Time{}, &MalformedRecordError{Feed: FeedLocations, Index: 0, Field: "LastStatisticsDate", Reason: "feed is empty"}
	}
	var latest time.Time
	for i, rec := range records {
		key, err := recordDate(FeedLocations, i, "LastStatisticsDate", rec.LastStatisticsDate)
		if err != nil {
			return time.Time{}, err
		}
		if d, _ := ParseDate(key); d.After(latest) {
			latest = d
		}
	}
	return latest, nil
}

func latestHospitalLoad(records []HospitalRecord) (time.Time, error) {
	if len(records) == 0 {
		return time.Time{}, &MalformedRecordError{Feed: FeedHospitalization, Index: 0, Field: "LastLoadStatisticsDate", Reason: "feed is empty"}
	}
	var latest time.Time
	for i, rec := range records {
		key, err := recordDate(FeedHospitalization, i, "LastLoadStatisticsDate", rec.LastLoadStatisticsDate)
		if err != nil {
			return time.Time{}, err
		}
		if d, _ := ParseDate(key); d.After(latest) {
			latest = d
		}
	}
	return latest, nil
}
