package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleRef(t *testing.T) {
	class, path := moduleRef("users")
	assert.Equal(t, "UsersModule", class)
	assert.Equal(t, "./users/users.module", path)

	class, path = moduleRef("rate-limit")
	assert.Equal(t, "RateLimitModule", class)
	assert.Equal(t, "./rate-limit/rate-limit.module", path)

	class, path = moduleRef("users:mongodb")
	assert.Equal(t, "MongodbModule", class)
	assert.Equal(t, "./users/mongodb/mongodb.module", path)
}

func TestRegisterModule_Idempotent(t *testing.T) {
	once, err := registerModule(appModule, "users")
	require.NoError(t, err)
	twice, err := registerModule(once, "users")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestRegisterModule_AppendsToExistingImports(t *testing.T) {
	src := `import { Module } from '@nestjs/common';
import { ConfigModule } from '@nestjs/config';

@Module({
  imports: [
    ConfigModule.forRoot({ isGlobal: true, load: [config] }),
  ],
})
export class AppModule {}
`

	out, err := registerModule(src, "auth")
	require.NoError(t, err)

	assert.Contains(t, out, "    ConfigModule.forRoot({ isGlobal: true, load: [config] }),\n    AuthModule,\n  ],\n})")
	assert.Contains(t, out, "import { AuthModule } from './auth/auth.module';")
}

func TestRegisterModule_AddsMissingComma(t *testing.T) {
	out, err := registerModule("@Module({ imports: [ConfigModule] })\nexport class AppModule {}\n", "users")
	require.NoError(t, err)

	assert.Equal(t,
		"import { UsersModule } from './users/users.module';\n@Module({ imports: [ConfigModule,\n    UsersModule,\n  ] })\nexport class AppModule {}\n",
		out)
}

func TestRegisterModule_NoImportsArray(t *testing.T) {
	src := "@Module({ controllers: [] })\nexport class AppModule {}\n"

	out, err := registerModule(src, "users")

	assert.ErrorIs(t, err, errNoImportsArray)
	assert.Equal(t, src, out)
}

func TestRegisterModule_TrailingMarkerComment(t *testing.T) {
	src := `import { Module } from '@nestjs/common';

@Module({
  imports: [
    ConfigModule.forRoot({ isGlobal: true }),
    // <!-- MODULES -->
  ],
})
export class AppModule {}
`

	out, err := registerModule(src, "users")
	require.NoError(t, err)

	assert.Contains(t, out, "    ConfigModule.forRoot({ isGlobal: true }),\n    // <!-- MODULES -->\n    UsersModule,\n  ],")
}

func TestNeedsComma(t *testing.T) {
	assert.False(t, needsComma(""))
	assert.False(t, needsComma("\n    // <!-- MODULES -->"))
	assert.True(t, needsComma("ConfigModule"))
	assert.False(t, needsComma("\n    A,\n    // trailing"))
	assert.True(t, needsComma("\n    A\n    // trailing"))
}
