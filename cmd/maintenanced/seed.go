package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/pm"
	"pm-workorder-backend/internal/store"
)

// seedFleetSize machines split roughly 20% overdue, 33% due soon and the
// rest comfortably ahead of their next PM, so a fresh install has something
// for every dashboard view.
const seedFleetSize = 75

type seedSupplier struct {
	name  string
	email string
}

var (
	seedSuppliers = []seedSupplier{
		{"TechServ Inc", "dispatch@techserv.example"},
		{"MainCo Solutions", "service@mainco.example"},
		{"FixIt Pro", "jobs@fixitpro.example"},
		{"Industrial Care", "support@industrialcare.example"},
		{"MachineGuard", "pm@machineguard.example"},
		{"ProMaintain", "scheduling@promaintain.example"},
		{"QuickFix Ltd", "intake@quickfix.example"},
		{"ReliaTech", "service@reliatech.example"},
	}

	seedFrequencies = []model.PMFrequency{
		model.FrequencyMonthly,
		model.FrequencyBimonthly,
		model.FrequencyQuarterly,
		model.FrequencyYearly,
	}

	seedLocations = []string{"Zone A", "Zone B", "Zone C", "Zone D", "Zone E"}

	seedMachineTypes = []string{
		"CNC Mill", "Lathe", "Press", "Grinder", "Welder",
		"Conveyor", "Robot Arm", "Drill Press", "Band Saw",
		"Plasma Cutter", "Assembly Line", "Packaging Machine",
	}

	seedMaintenanceTypes = []string{"Preventive", "Corrective", "Inspection"}

	seedMaintenanceNotes = []string{
		"Regular maintenance performed. All systems operational.",
		"Routine inspection completed. No issues found.",
		"Preventive maintenance completed successfully.",
		"Parts lubricated and checked. Running smoothly.",
		"Comprehensive service performed. Machine in good condition.",
		"Scheduled maintenance completed. Performance optimal.",
		"Inspection and minor adjustments completed.",
	}
)

// seedFleet populates the database with a sample fleet plus a few years of
// maintenance history per machine, then returns so the process can exit.
func seedFleet(ctx context.Context, st store.Store, logger *logrus.Logger) error {
	today := time.Now()

	overdueCount := seedFleetSize * 20 / 100
	dueSoonCount := seedFleetSize * 33 / 100
	okCount := seedFleetSize - overdueCount - dueSoonCount

	var machines []*model.Machine
	n := 1
	for i := 0; i < overdueCount; i++ {
		machines = append(machines, newSeedMachine(n, today.AddDate(0, 0, -(1+rand.Intn(60)))))
		n++
	}
	for i := 0; i < dueSoonCount; i++ {
		machines = append(machines, newSeedMachine(n, today.AddDate(0, 0, 1+rand.Intn(30))))
		n++
	}
	for i := 0; i < okCount; i++ {
		machines = append(machines, newSeedMachine(n, today.AddDate(0, 0, 31+rand.Intn(335))))
		n++
	}

	historyRecords := 0
	for _, m := range machines {
		if err := st.CreateMachine(ctx, m); err != nil {
			return fmt.Errorf("create machine %s: %w", m.MachineID, err)
		}
		for j := 0; j < 3+rand.Intn(6); j++ {
			rec := &model.MaintenanceRecord{
				MachineID:   m.ID,
				Date:        today.AddDate(0, 0, -(30 + rand.Intn(700))),
				Type:        seedMaintenanceTypes[rand.Intn(len(seedMaintenanceTypes))],
				Notes:       seedMaintenanceNotes[rand.Intn(len(seedMaintenanceNotes))],
				PerformedBy: m.AssignedSupplier,
			}
			if err := st.CreateMaintenanceRecord(ctx, rec); err != nil {
				return fmt.Errorf("create history for %s: %w", m.MachineID, err)
			}
			historyRecords++
		}
	}

	logger.WithFields(logrus.Fields{
		"machines":        len(machines),
		"overdue":         overdueCount,
		"due_soon":        dueSoonCount,
		"ok":              okCount,
		"history_records": historyRecords,
	}).Info("sample fleet seeded")
	return nil
}

func newSeedMachine(n int, nextPM time.Time) *model.Machine {
	freq := seedFrequencies[rand.Intn(len(seedFrequencies))]
	supplier := seedSuppliers[rand.Intn(len(seedSuppliers))]
	location := seedLocations[rand.Intn(len(seedLocations))]
	lastPM := nextPM.AddDate(0, 0, -pm.IntervalDays(freq))

	return &model.Machine{
		MachineID:        fmt.Sprintf("MACH-%03d", n),
		Name:             fmt.Sprintf("%s %d", seedMachineTypes[rand.Intn(len(seedMachineTypes))], n),
		Description:      "Production machine in " + location,
		Location:         location,
		PMFrequency:      freq,
		LastPMDate:       &lastPM,
		NextPMDate:       nextPM,
		AssignedSupplier: supplier.name,
		SupplierEmail:    supplier.email,
		Status:           model.MachineStatusActive,
	}
}
