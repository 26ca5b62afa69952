package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicore/practice-backend/internal/activity"
	"github.com/clinicore/practice-backend/internal/booking"
	"github.com/clinicore/practice-backend/internal/db"
	"github.com/clinicore/practice-backend/internal/finance"
	"github.com/clinicore/practice-backend/internal/notify"
	redisclient "github.com/clinicore/practice-backend/internal/redis"
	"github.com/clinicore/practice-backend/internal/task"
)

const (
	practitionerCount = 5
	slotDays          = 10
	bookingsPerDay    = 6
	salesPerTenant    = 20
	purchasesPer      = 10
	quotationsPer     = 8
	entriesPerTenant  = 5
	tasksPerTenant    = 12
)

// Seeds a realistic data set through the services themselves so document
// numbers, slot counters and ledger mirrors all come out consistent.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	bookingSvc := booking.NewService(booking.NewPgRepository(pool), redisclient.NewLocalLocker(), notify.NopNotifier{}, activity.NewPgRecorder(pool))
	financeSvc := finance.NewService(finance.NewPgRepository(pool), activity.NewPgRecorder(pool))
	taskSvc := task.NewService(task.NewPgRepository(pool), nil, activity.NewPgRecorder(pool))

	for i := 0; i < practitionerCount; i++ {
		practitionerID := uuid.New()
		log.Printf("seeding practitioner %d/%d id=%s", i+1, practitionerCount, practitionerID)

		if err := seedSchedule(context.Background(), bookingSvc, practitionerID); err != nil {
			log.Fatalf("seed schedule: %v", err)
		}
		if err := seedFinance(context.Background(), financeSvc, practitionerID); err != nil {
			log.Fatalf("seed finance: %v", err)
		}
		if err := seedTasks(context.Background(), taskSvc, practitionerID); err != nil {
			log.Fatalf("seed tasks: %v", err)
		}
	}

	log.Println("seed complete")
}

func seedSchedule(ctx context.Context, svc *booking.Service, practitionerID uuid.UUID) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	for day := 0; day < slotDays; day++ {
		dayStart := today.AddDate(0, 0, day+1).Add(9 * time.Hour)
		slots, err := svc.GenerateSlots(ctx, practitionerID, booking.GenerateSlotsInput{
			DayStart:        dayStart,
			DayEnd:          dayStart.Add(8 * time.Hour),
			DurationMinutes: 30,
			Price:           decimal.NewFromFloat(gofakeit.Price(300, 1200)).Round(2),
			MaxBookings:     gofakeit.Number(1, 3),
		})
		if err != nil {
			return err
		}

		booked := 0
		for i := range slots {
			if booked >= bookingsPerDay {
				break
			}
			if gofakeit.Bool() {
				continue
			}
			patient := booking.PatientInfo{
				Name:  gofakeit.Name(),
				Phone: gofakeit.Phone(),
				Email: gofakeit.Email(),
			}
			if _, _, err := svc.CreateBooking(ctx, practitionerID, slots[i].ID, patient, gofakeit.Sentence(6)); err != nil {
				return err
			}
			booked++
		}
	}
	return nil
}

func seedFinance(ctx context.Context, svc *finance.Service, practitionerID uuid.UUID) error {
	kinds := []struct {
		count  int
		create func(context.Context, uuid.UUID, finance.DocumentInput) (*finance.Document, error)
	}{
		{salesPerTenant, svc.CreateSale},
		{purchasesPer, svc.CreatePurchase},
		{quotationsPer, svc.CreateQuotation},
	}

	for _, k := range kinds {
		for i := 0; i < k.count; i++ {
			in := finance.DocumentInput{
				CounterpartyName:  gofakeit.Name(),
				CounterpartyTaxID: gofakeit.LetterN(4) + gofakeit.DigitN(6),
				Items:             fakeItems(),
			}
			doc, err := k.create(ctx, practitionerID, in)
			if err != nil {
				return err
			}

			// Roughly a third paid in full, a third partial, a third open.
			switch gofakeit.Number(0, 2) {
			case 0:
				in2 := finance.DocumentUpdate{
					CounterpartyName:  doc.CounterpartyName,
					CounterpartyTaxID: doc.CounterpartyTaxID,
					AmountPaid:        doc.Total,
					Items:             fakeItemsFrom(doc),
				}
				if _, err := updateByKind(ctx, svc, doc.Kind, practitionerID, doc.ID, in2); err != nil {
					return err
				}
			case 1:
				in2 := finance.DocumentUpdate{
					CounterpartyName:  doc.CounterpartyName,
					CounterpartyTaxID: doc.CounterpartyTaxID,
					AmountPaid:        doc.Total.Div(decimal.NewFromInt(2)).Round(2),
					Items:             fakeItemsFrom(doc),
				}
				if _, err := updateByKind(ctx, svc, doc.Kind, practitionerID, doc.ID, in2); err != nil {
					return err
				}
			}
		}
	}

	for i := 0; i < entriesPerTenant; i++ {
		entryType := finance.EntryIngreso
		if gofakeit.Bool() {
			entryType = finance.EntryEgreso
		}
		amount := decimal.NewFromFloat(gofakeit.Price(50, 2000)).Round(2)
		_, err := svc.CreateManualEntry(ctx, practitionerID, finance.EntryInput{
			Concept:    gofakeit.ProductName(),
			EntryType:  entryType,
			Amount:     amount,
			AmountPaid: amount,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func updateByKind(ctx context.Context, svc *finance.Service, kind finance.DocumentKind, practitionerID, id uuid.UUID, in finance.DocumentUpdate) (*finance.Document, error) {
	switch kind {
	case finance.KindSale:
		return svc.UpdateSale(ctx, practitionerID, id, in)
	case finance.KindPurchase:
		return svc.UpdatePurchase(ctx, practitionerID, id, in)
	default:
		return svc.UpdateQuotation(ctx, practitionerID, id, in)
	}
}

func fakeItems() []finance.LineItemInput {
	n := gofakeit.Number(1, 3)
	items := make([]finance.LineItemInput, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, finance.LineItemInput{
			Description: gofakeit.ProductName(),
			ItemType:    "service",
			Quantity:    decimal.NewFromInt(int64(gofakeit.Number(1, 5))),
			Unit:        "unit",
			UnitPrice:   decimal.NewFromFloat(gofakeit.Price(100, 900)).Round(2),
		})
	}
	return items
}

func fakeItemsFrom(doc *finance.Document) []finance.LineItemInput {
	items := make([]finance.LineItemInput, 0, len(doc.Items))
	for _, li := range doc.Items {
		li := li
		items = append(items, finance.LineItemInput{
			Description:  li.Description,
			ItemType:     li.ItemType,
			Quantity:     li.Quantity,
			Unit:         li.Unit,
			UnitPrice:    li.UnitPrice,
			DiscountRate: &li.DiscountRate,
			TaxRate:      &li.TaxRate,
		})
	}
	return items
}

func seedTasks(ctx context.Context, svc *task.Service, practitionerID uuid.UUID) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	for i := 0; i < tasksPerTenant; i++ {
		date := today.AddDate(0, 0, gofakeit.Number(0, slotDays))
		in := task.TaskInput{
			Title: gofakeit.VerbAction() + " " + gofakeit.NounConcrete(),
			Notes: gofakeit.Sentence(8),
			Date:  date,
		}
		// Half the tasks get a concrete time range, spread out to avoid
		// seeding conflicts.
		if i%2 == 0 {
			start := date.Add(time.Duration(8+i) * time.Hour)
			end := start.Add(45 * time.Minute)
			in.StartAt = &start
			in.EndAt = &end
		}
		if _, _, err := svc.CreateTask(ctx, practitionerID, in); err != nil {
			return err
		}
	}
	return nil
}
