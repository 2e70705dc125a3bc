package command

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/infrastructure/escpos"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer/bluetooth"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer/serialport"
	"github.com/frontandrew/parkpos/internal/pkg/config"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/pkg/profile"
)

var portName string

var printerCmd = &cobra.Command{
	Use:   "printer",
	Short: "Thermal printer discovery and diagnostics",
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ports, err := serialport.NewProvider(newLogger()).Ports()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PORT\tUSB\tVID:PID\tPRODUCT")
		for _, p := range ports {
			fmt.Fprintf(tw, "%s\t%t\t%s:%s\t%s\n", p.Name, p.IsUSB, p.VID, p.PID, p.Product)
		}
		return tw.Flush()
	},
}

var scanCmd = &cobra.Command{
	Use:       "scan bluetooth|serial",
	Short:     "Find a printer and check that it accepts data",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"bluetooth", "serial"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		hw, err := scan(ctx, cfg, newLogger(), args[0])
		if err != nil {
			return err
		}
		binding := printer.NewBinding()
		binding.Bind(hw)
		defer binding.Clear()

		fmt.Fprintf(cmd.OutOrStdout(), "found %s printer %q at %s\n", hw.Kind, hw.Name, hw.Address)
		return nil
	},
}

var testCmd = &cobra.Command{
	Use:       "test bluetooth|serial",
	Short:     "Print a sample ticket",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"bluetooth", "serial"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		settings, err := profile.LoadFile(profilePath)
		if err != nil {
			return err
		}
		log := newLogger()

		hw, err := scan(ctx, cfg, log, args[0])
		if err != nil {
			return err
		}
		binding := printer.NewBinding()
		binding.Bind(hw)
		defer binding.Clear()

		now := time.Now()
		record := &domain.ParkingRecord{
			ID:          "test",
			Plate:       "TEST01",
			Vehicle:     "Prueba",
			VehicleType: firstVehicleType(settings.Tariffs),
			EntryAt:     domain.FormatTimestamp(now.Add(-75 * time.Minute)),
			ExitAt:      domain.FormatTimestamp(now),
			Status:      domain.StatusFinalized,
		}

		encoder := escpos.NewEncoder(escpos.WithLocation(cfg.Ticket.Location()))
		data := encoder.Encode(record, settings.PrintSettings, settings.Tariffs, settings.Currency)

		result := printer.NewDispatcher(printerOptions(cfg), log).Send(ctx, data, binding.Current())
		if !result.Success {
			return fmt.Errorf("print failed: %s", result.Error)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "sent %d bytes to %q\n", len(data), hw.Name)
		return nil
	},
}

// firstVehicleType выбирает тип по алфавиту, чтобы пробный билет не менялся
func firstVehicleType(tariffs domain.Tariffs) string {
	types := make([]string, 0, len(tariffs))
	for t := range tariffs {
		types = append(types, t)
	}
	sort.Strings(types)
	if len(types) == 0 {
		return ""
	}
	return types[0]
}

func printerOptions(cfg *config.Config) printer.Options {
	return printer.Options{
		ChunkSize:   cfg.Printer.ChunkSize,
		ChunkDelay:  cfg.Printer.ChunkDelay,
		BaudRate:    cfg.Printer.BaudRate,
		ServiceUUID: cfg.Printer.ServiceUUID,
		ScanTimeout: cfg.Printer.ScanTimeout,
	}
}

// scan запускает поиск только для выбранного транспорта
func scan(ctx context.Context, cfg *config.Config, log logger.Logger, kind string) (*domain.HardwareHandle, error) {
	opts := printerOptions(cfg)

	switch domain.HardwareKind(kind) {
	case domain.HardwareBluetooth:
		scanner := printer.NewScanner(bluetooth.NewCentral(cfg.Printer.WriteUUIDs, log), nil, opts, log)
		return scanner.ScanBluetooth(ctx)
	case domain.HardwareSerial:
		scanner := printer.NewScanner(nil, serialport.NewProvider(log), opts, log)
		return scanner.ScanSerial(ctx, portName)
	default:
		return nil, fmt.Errorf("unknown printer type %q", kind)
	}
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, testCmd} {
		c.Flags().StringVar(&portName, "port", "", "serial port name, empty selects the first USB port")
	}
	printerCmd.AddCommand(portsCmd, scanCmd, testCmd)
	rootCmd.AddCommand(printerCmd)
}
