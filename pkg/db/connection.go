// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

// Package db opens the Postgres connection pool used by the run store.
package db

import (
	"context"
	"fmt"
	"net/url"

	"github.com/TFMV/VecTrainer/pkg/config"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseURL builds the connection string for creds.
func DatabaseURL(creds config.DBCreds) string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(creds.Username, creds.Password),
		Host:   creds.Host + ":" + creds.Port,
		Path:   "/" + creds.Database,
	}
	return u.String()
}

// NewConnection creates a new database connection pool and checks that the
// server answers.
func NewConnection(ctx context.Context, creds config.DBCreds) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(DatabaseURL(creds))
	if err != nil {
		return nil, apperrors.Configf("connect database", "unable to parse database url: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.Resource("connect database", creds.Host+":"+creds.Port, err)
	}
	return pool, nil
}
