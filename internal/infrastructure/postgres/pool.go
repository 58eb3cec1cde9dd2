package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/cooperativa-api/pkg/config"
)

// Conexiones que quedan libres para lecturas HTTP mientras corre una generación masiva.
const readHeadroom = 8

// NewPool crea el pool de PostgreSQL. workers es el paralelismo de la generación masiva:
// cada worker retiene una conexión durante su transacción.
func NewPool(ctx context.Context, cfg config.DBConfig, workers int) (*pgxpool.Pool, error) {
	dsn := cfg.ConnectionString()
	if cfg.ForceIPv4 {
		dsn = dsnWithIPv4(dsn)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	if cfg.ForceIPv4 {
		// Algunos contenedores no tienen salida IPv6 y el host puede resolver a AAAA.
		poolConfig.ConnConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			if ipv4, err := resolveIPv4(ctx, host); err == nil {
				return d.DialContext(ctx, "tcp4", net.JoinHostPort(ipv4, port))
			}
			return d.DialContext(ctx, network, addr)
		}
	}

	poolConfig.MaxConns, poolConfig.MinConns = poolSize(cfg, workers)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	// NUMERIC <-> shopspring/decimal en todas las conexiones del pool.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

// poolSize calcula MaxConns y MinConns. Sin DB_MAX_CONNS el máximo es workers + readHeadroom.
// Un máximo explícito nunca baja de workers + 1: la transición final del periodo
// y las lecturas necesitan al menos una conexión fuera de los workers.
func poolSize(cfg config.DBConfig, workers int) (maxConns, minConns int32) {
	if workers < 1 {
		workers = 1
	}
	hi := workers + readHeadroom
	if cfg.MaxConns > 0 {
		hi = cfg.MaxConns
	}
	if hi < workers+1 {
		hi = workers + 1
	}
	lo := cfg.MinConns
	if lo < 0 {
		lo = 0
	}
	if lo > hi {
		lo = hi
	}
	return int32(hi), int32(lo)
}

// resolveIPv4 devuelve la primera IPv4 del host con el resolver del sistema.
func resolveIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			return host, nil
		}
		return "", fmt.Errorf("%s es IPv6", host)
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("%s sin IPv4", host)
	}
	return ips[0].String(), nil
}

// dsnWithIPv4 reemplaza el host del DSN por su IPv4; si no resuelve, lo deja igual.
func dsnWithIPv4(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Hostname() == "" {
		return dsn
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	ipv4, err := resolveIPv4(context.Background(), u.Hostname())
	if err != nil {
		return dsn
	}
	u.Host = net.JoinHostPort(ipv4, port)
	return u.String()
}
