package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/baobabichh/diabetic-diary-app/internal/calculator"
	"github.com/baobabichh/diabetic-diary-app/internal/form"
	"github.com/baobabichh/diabetic-diary-app/internal/media"
	"github.com/baobabichh/diabetic-diary-app/internal/models"
	"github.com/baobabichh/diabetic-diary-app/internal/navigation"
	"github.com/baobabichh/diabetic-diary-app/internal/service"
)

var errUsage = errors.New("usage error")

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("DIARY_PASSWORD"), "password (at least 8 characters)")
	confirm := fs.String("confirm", "", "password confirmation (defaults to -password)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *confirm == "" {
		*confirm = *password
	}

	// A signed-in user keeps the current session until the new account
	// exists; SignIn then replaces the token.
	if !a.nav.SignedIn() {
		if err := a.nav.Navigate(navigation.Register); err != nil {
			return err
		}
	}
	if err := a.auth.Register(ctx, *email, *password, *confirm); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registration successful!")
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("DIARY_PASSWORD"), "password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if a.nav.SignedIn() {
		fmt.Fprintln(a.out, "Already logged in; signing in again.")
	}
	if err := a.auth.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	a.auth.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func runProfile(_ context.Context, a *app, _ []string) error {
	if err := a.nav.Navigate(navigation.Profile); err != nil {
		return err
	}
	token, _ := a.session.Token()
	fmt.Fprintln(a.out, "User Profile")
	fmt.Fprintf(a.out, "User ID: %s\n", token)
	return nil
}

// gramsFlag collects repeated -grams index=weight edits.
type gramsFlag map[int]string

func (g gramsFlag) String() string {
	parts := make([]string, 0, len(g))
	for i, w := range g {
		parts = append(parts, fmt.Sprintf("%d=%s", i, w))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (g gramsFlag) Set(v string) error {
	idx, weight, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("want index=grams, got %q", v)
	}
	i, err := strconv.Atoi(idx)
	if err != nil {
		return fmt.Errorf("bad product index %q", idx)
	}
	g[i] = weight
	return nil
}

// formFlags are the record fields shared by recognize and manual.
type formFlags struct {
	fs       *flag.FlagSet
	carbs    *string
	insulin  *string
	time     *string
	sport    *string
	personal *string
}

func addFormFlags(fs *flag.FlagSet) *formFlags {
	return &formFlags{
		fs:       fs,
		carbs:    fs.String("carbs", "", "carbohydrates in grams"),
		insulin:  fs.String("insulin", "", "insulin units; setting it disables automatic calculation"),
		time:     fs.String("time", "", "time-of-day coefficient (default 1.0)"),
		sport:    fs.String("sport", "", "activity coefficient (default 1.0)"),
		personal: fs.String("personal", "", "personal coefficient (default 1.0)"),
	}
}

// apply copies the explicitly set flags into f. Coefficients go first so
// the automatic dose sees them.
func (ff *formFlags) apply(f *form.RecordForm) {
	set := map[string]bool{}
	ff.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["time"] {
		f.SetTimeCoefficient(*ff.time)
	}
	if set["sport"] {
		f.SetSportCoefficient(*ff.sport)
	}
	if set["personal"] {
		f.SetPersonalCoefficient(*ff.personal)
	}
	if set["carbs"] {
		f.SetCarbohydrates(*ff.carbs)
	}
	if set["insulin"] {
		f.SetInsulin(*ff.insulin)
	}
}

func runRecognize(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("recognize")
	grams := gramsFlag{}
	fs.Var(grams, "grams", "corrected weight of a product as index=grams (repeatable)")
	ff := addFormFlags(fs)
	dryRun := fs.Bool("dry-run", false, "show the result without saving a record")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: diary recognize [flags] <image>")
		return errUsage
	}

	if err := a.nav.Navigate(navigation.Recognition); err != nil {
		return err
	}

	img, err := media.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	svc := a.recognition
	done := make(chan service.Snapshot, 1)
	var (
		mu         sync.Mutex
		lastStatus models.RecognitionStatus
	)
	svc.Subscribe(func(s service.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.Status != "" && s.Status != lastStatus {
			lastStatus = s.Status
			fmt.Fprintf(a.out, "Status: %s\n", s.Status)
		}
		if s.Phase == service.PhaseResultReady || s.Phase == service.PhaseFailed {
			select {
			case done <- s:
			default:
			}
		}
	})

	svc.SelectImage(img)
	if err := svc.Submit(ctx); err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}
	fmt.Fprintln(a.out, "Processing your image...")

	var snap service.Snapshot
	select {
	case <-ctx.Done():
		return ctx.Err()
	case snap = <-done:
	}
	if snap.Phase == service.PhaseFailed {
		return snap.Err
	}

	f := snap.Form
	for _, i := range sortedKeys(grams) {
		if _, err := svc.UpdateFoodItem(ctx, i, grams[i]); err != nil {
			if errors.Is(err, form.ErrNoSuchItem) {
				return err
			}
			alert(fmt.Errorf("failed to edit result: %w", err))
		}
	}
	ff.apply(f)

	printProducts(a, f)
	printForm(a, f)

	if *dryRun {
		return nil
	}
	if err := svc.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Record saved.")
	return nil
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func printProducts(a *app, f *form.RecordForm) {
	products := f.Products()
	if len(products) == 0 {
		fmt.Fprintln(a.out, "No results available")
		return
	}
	fmt.Fprintln(a.out, "Food Recognition Results:")
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tCARBS\tWEIGHT")
	for i, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%gg\t%gg\n", i, p.Name, p.Carbs, p.Grams)
	}
	w.Flush()
	fmt.Fprintf(a.out, "Total carbs: %sg\n", calculator.FormatOneDecimal(f.TotalCarbs()))
}

func printForm(a *app, f *form.RecordForm) {
	v := f.Values()
	mode := "auto"
	if v.ManualInsulin {
		mode = "manual"
	}
	fmt.Fprintf(a.out, "Carbohydrates: %s g\n", v.Carbohydrates)
	fmt.Fprintf(a.out, "Insulin: %s units (%s)\n", v.Insulin, mode)
	fmt.Fprintf(a.out, "Coefficients: time %s, sport %s, personal %s\n",
		v.TimeCoefficient, v.SportCoefficient, v.PersonalCoefficient)
}

func runManual(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("manual")
	ff := addFormFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := a.nav.Navigate(navigation.Recognition); err != nil {
		return err
	}

	f := a.recognition.StartManualEntry()
	ff.apply(f)
	printForm(a, f)

	if err := a.recognition.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Record saved.")
	return nil
}

func runHistory(ctx context.Context, a *app, _ []string) error {
	if err := a.nav.Navigate(navigation.History); err != nil {
		return err
	}
	records, err := a.history.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records, please try again: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No records found")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tCARBS\tINSULIN\tTC\tSC\tPC")
	for _, r := range records {
		s := service.FormatRecordSummary(r, time.Local)
		fmt.Fprintf(w, "%s\t%s\t%sg\t%su\t%s\t%s\t%s\n",
			r.ID, s.Date, s.Carbohydrates, s.Insulin,
			s.TimeCoefficient, s.SportCoefficient, s.PersonalCoefficient)
	}
	return w.Flush()
}

func runShow(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: diary show <record-id>")
		return errUsage
	}
	if err := a.nav.Navigate(navigation.History); err != nil {
		return err
	}

	record, err := a.history.Find(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.nav.OpenRecord(record.ID); err != nil {
		return err
	}
	defer a.nav.CloseRecord()

	detail := a.history.Detail(ctx, record)
	s := service.FormatRecordSummary(record, time.Local)

	fmt.Fprintln(a.out, "Record Details")
	fmt.Fprintf(a.out, "Record ID: %s\n", record.ID)
	fmt.Fprintf(a.out, "Date: %s\n", s.Date)
	fmt.Fprintf(a.out, "Insulin: %s units\n", s.Insulin)
	fmt.Fprintf(a.out, "Carbohydrates: %s g\n", s.Carbohydrates)
	fmt.Fprintf(a.out, "Time Coefficient: %s\n", s.TimeCoefficient)
	fmt.Fprintf(a.out, "Sport Coefficient: %s\n", s.SportCoefficient)
	fmt.Fprintf(a.out, "Personal Coefficient: %s\n", s.PersonalCoefficient)

	if detail.Food == nil || len(detail.Food.Products) == 0 {
		return nil
	}
	fmt.Fprintln(a.out, "Food Items:")
	for _, p := range detail.Food.Products {
		fmt.Fprintf(a.out, "  %s: %gg carbs, %gg\n", p.Name, p.Carbs, p.Grams)
	}
	return nil
}
