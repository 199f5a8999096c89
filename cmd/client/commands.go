package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atinyakov/FitKeeper/internal/client/storage"
	"github.com/atinyakov/FitKeeper/internal/gate"
	"github.com/atinyakov/FitKeeper/internal/models"
	"github.com/spf13/cobra"
)

// resolveTimeout bounds the session lookup a gated command waits for.
const resolveTimeout = 10 * time.Second

// app is the state shared by all commands of one invocation.
type app struct {
	baseURL     string
	caFile      string
	storagePath string

	ls  *storage.LocalStorage
	api *storage.APIClient
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "fitkeeper",
		Short:         "FitKeeper tracks meals, exercises and weight from your terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.baseURL, "url", "https://localhost:8080", "server base URL")
	root.PersistentFlags().StringVar(&a.caFile, "ca", "certs/ca.crt", "CA certificate trusted for the server (empty for system roots)")
	root.PersistentFlags().StringVar(&a.storagePath, "storage", storage.DefaultFile, "path to the local storage file")

	meal := &cobra.Command{Use: "meal", Short: "Log meals"}
	meal.AddCommand(a.mealAddCmd(), a.mealResetCmd())

	exercise := &cobra.Command{Use: "exercise", Short: "Manage your exercise list"}
	exercise.AddCommand(a.exerciseAddCmd())

	profile := &cobra.Command{Use: "profile", Short: "Edit your profile"}
	profile.AddCommand(a.profileSetCmd())

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.guestCmd(),
		a.logoutCmd(),
		a.homeCmd(),
		a.recordCmd(),
		a.workoutsCmd(),
		meal,
		exercise,
		profile,
	)
	return root
}

func (a *app) setup() error {
	a.ls = storage.NewLocalStorage(a.storagePath)
	if err := a.ls.Load(); err != nil {
		return err
	}

	hc, err := storage.NewHTTPClient(a.caFile)
	if err != nil {
		return err
	}
	a.api = storage.NewAPIClient(strings.TrimRight(a.baseURL, "/"), hc)
	a.api.Token = a.ls.SessionToken()
	a.api.Guest = a.ls.IsGuest()
	return nil
}

// gated mounts a session gate and runs fn only when the visitor may pass.
// A blocked visitor gets the notice and the landing route instead.
func (a *app) gated(cmd *cobra.Command, guestAllowed bool, fn func(ctx context.Context, s gate.Session) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
	defer cancel()

	stream := storage.NewSessionStream(ctx, a.api)
	var opts []gate.Option
	if guestAllowed {
		opts = append(opts, gate.WithGuestAllowed())
	}
	g := gate.New(stream, a.ls, opts...)
	g.Mount()
	defer g.Unmount()

	v, err := g.Wait(ctx)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}

	switch v := v.(type) {
	case gate.Render:
		a.api.Guest = a.ls.IsGuest()
		err := fn(cmd.Context(), v.Session)
		var blocked *storage.BlockedError
		if errors.As(err, &blocked) {
			printBlocked(cmd.OutOrStdout(), blocked.Message, blocked.Redirect)
			return nil
		}
		return err
	case gate.Blocked:
		if err := stream.Err(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "session lookup failed: %v\n", err)
		}
		printBlocked(cmd.OutOrStdout(), v.Notice, g.Dismiss())
		return nil
	default:
		return errors.New("session not resolved")
	}
}

func printBlocked(w io.Writer, notice, route string) {
	fmt.Fprintln(w, notice)
	fmt.Fprintf(w, "redirecting to %s\n", route)
}

func printRecord(w io.Writer, rec *models.UserRecord) {
	fmt.Fprintf(w, "Name: %s\n", rec.Name)
	fmt.Fprintf(w, "Weight: %g kg  Height: %g cm  Age: %d  Gender: %s  Goal: %s\n",
		rec.Weight, rec.Height, rec.Age, rec.Gender, rec.Goal)
	fmt.Fprintf(w, "Weight history: %v\n", rec.WeightHistory)
	fmt.Fprintf(w, "Calories: %g / %g\n", rec.TotalCaloriesConsumed, rec.RequiredCaloriesPerDay)
	if len(rec.Meals) > 0 {
		fmt.Fprintln(w, "MEAL\tGRAMS\tPROTEIN\tCARBS\tFATS\tKCAL")
		for _, m := range rec.Meals {
			fmt.Fprintf(w, "%s\t%g\t%.1f\t%.1f\t%.1f\t%.1f\n", m.Name, m.Grams, m.Protein, m.Carbs, m.Fats, m.Calories)
		}
	}
	if len(rec.Exercises) > 0 {
		fmt.Fprintln(w, "Exercises:")
		for _, e := range rec.Exercises {
			fmt.Fprintf(w, "  %d\t%s\n", e.ID, e.Name)
		}
	}
}

func (a *app) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := storage.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).Registration()
			if err != nil {
				return err
			}
			if err := a.api.Register(cmd.Context(), reg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. Run \"login\" to sign in.\n", reg.Email)
			return nil
		},
	}
}

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := storage.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).Credentials()
			if err != nil {
				return err
			}
			token, err := a.api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.ls.SignedIn(token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", email)
			return nil
		},
	}
}

func (a *app) guestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Continue as guest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.ContinueAsGuest(cmd.Context()); err != nil {
				return err
			}
			if err := a.ls.ContinueAsGuest(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Continuing as guest")
			return nil
		},
	}
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.Logout(cmd.Context()); err != nil {
				return err
			}
			if err := a.ls.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (a *app) homeCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Show the home screen (guests allowed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.gated(cmd, true, func(ctx context.Context, _ gate.Session) error {
				home, err := a.api.Home(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, home.Greeting)
				fmt.Fprintln(out, home.Quote)
				if !watch {
					return nil
				}
				return a.api.WatchHome(ctx, func(ev storage.HomeEvent) {
					switch {
					case ev.Redirect != "":
						printBlocked(out, gate.Notice, ev.Redirect)
					case ev.Type == "quote":
						fmt.Fprintln(out, ev.Quote)
					}
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep showing a new quote until interrupted")
	return cmd
}

func (a *app) recordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Show your profile, meals and exercises",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.gated(cmd, false, func(ctx context.Context, _ gate.Session) error {
				rec, err := a.api.Record(ctx)
				if err != nil {
					return err
				}
				printRecord(cmd.OutOrStdout(), rec)
				return nil
			})
		},
	}
}

func (a *app) mealAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <grams>",
		Short: "Log a meal; macros are derived from its weight",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.gated(cmd, false, func(ctx context.Context, _ gate.Session) error {
				rec, err := a.api.AddMeal(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if n := len(rec.Meals); n > 0 {
					m := rec.Meals[n-1]
					fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %.1f kcal (protein %.1f g, carbs %.1f g, fats %.1f g)\n",
						m.Name, m.Calories, m.Protein, m.Carbs, m.Fats)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total today: %g kcal\n", rec.TotalCaloriesConsumed)
				return nil
			})
		},
	}
}

func (a *app) mealResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear today's meals and calorie total",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.gated(cmd, false, func(ctx context.Context, _ gate.Session) error {
				if _, err := a.api.ResetDailyTotals(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daily totals reset")
				return nil
			})
		},
	}
}

func (a *app) exerciseAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add an exercise to your list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.gated(cmd, false, func(ctx context.Context, _ gate.Session) error {
				rec, err := a.api.AddExercise(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if n := len(rec.Exercises); n > 0 {
					e := rec.Exercises[n-1]
					fmt.Fprintf(cmd.OutOrStdout(), "Added exercise %d: %s\n", e.ID, e.Name)
				}
				return nil
			})
		},
	}
}

func (a *app) profileSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set a profile field (name, weight, height, age, gender, goal, calories)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, value := args[0], strings.Join(args[1:], " ")
			return a.gated(cmd, false, func(ctx context.Context, _ gate.Session) error {
				var err error
				if field == "calories" {
					_, err = a.api.SetRequiredCalories(ctx, value)
				} else {
					_, err = a.api.UpdateProfile(ctx, field, value)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", field)
				return nil
			})
		},
	}
}

func (a *app) workoutsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workouts [search]",
		Short: "Recommend catalog exercises for your goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.gated(cmd, false, func(ctx context.Context, _ gate.Session) error {
				w, err := a.api.Workouts(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "BMI: %.1f  Goal: %s\n", w.BMI, w.Goal)
				if len(w.Exercises) == 0 {
					fmt.Fprintln(out, "No exercises found")
					return nil
				}
				fmt.Fprintln(out, "NAME\tBODY PART\tTARGET\tEQUIPMENT")
				for _, e := range w.Exercises {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", e.Name, e.BodyPart, e.Target, e.Equipment)
				}
				return nil
			})
		},
	}
}
