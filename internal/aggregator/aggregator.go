// Package aggregator reduces a poll snapshot to one row per user and class.
package aggregator

import (
	"Go2SessionSpectra/internal/model"
)

// key groups sessions of the same user on the same class of device.
type key struct {
	user  string
	class model.Class
}

// Aggregate groups snapshot by (user, class). Byte counters are summed over
// the group; every other field keeps the value of the first session seen in
// snapshot order. Rows come out in the order their group first appeared, so
// the same snapshot always yields the same rows.
func Aggregate(snapshot model.Snapshot) []model.AggregatedRow {
	rows := make([]model.AggregatedRow, 0, len(snapshot))
	index := make(map[key]int, len(snapshot))

	for _, s := range snapshot {
		k := key{user: s.User, class: s.Class}
		if i, ok := index[k]; ok {
			// Group exists, add its counters.
			rows[i].TxBytes += s.TxBytes
			rows[i].RxBytes += s.RxBytes
			continue
		}

		index[k] = len(rows)
		rows = append(rows, model.AggregatedRow{
			User:          s.User,
			Class:         s.Class,
			DeviceName:    s.DeviceName,
			DeviceAddress: s.DeviceAddress,
			LocalAddress:  s.LocalAddress,
			RemoteAddress: s.RemoteAddress,
			TxBytes:       s.TxBytes,
			RxBytes:       s.RxBytes,
			Uptime:        s.Uptime,
		})
	}

	return rows
}

// Summarize counts rows in total and per class.
func Summarize(rows []model.AggregatedRow) model.Summary {
	var sum model.Summary
	for _, r := range rows {
		switch r.Class {
		case model.ClassPPP:
			sum.PPP++
		case model.ClassSOCKS:
			sum.SOCKS++
		default:
			continue
		}
		sum.Total++
	}
	return sum
}
