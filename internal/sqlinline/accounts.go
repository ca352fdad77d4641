package sqlinline

const QEnsureAccount = `--sql eaeabeff-80a3-4f38-91c9-b8a43e6077ba
insert into token_accounts (id, balance, unlimited, created_at, updated_at)
values ($1::uuid, $2::bigint, false, now(), now())
on conflict (id) do nothing;
`

const QSelectAccount = `--sql 58d92759-4168-4774-a383-6962c4f1532c
select id, balance, unlimited, created_at, updated_at
from token_accounts
where id = $1::uuid
limit 1;
`

// QReserveTokens decrements the balance only when it covers the cost.
// Unlimited accounts match unconditionally and keep their balance. Zero
// rows updated means either a missing account or insufficient credit;
// callers disambiguate with QSelectAccount.
const QReserveTokens = `--sql 67049877-c51d-429e-bb2d-e02be3af1f90
update token_accounts
set balance = case when unlimited then balance else balance - $2::bigint end,
    updated_at = now()
where id = $1::uuid
  and (unlimited or balance >= $2::bigint)
returning balance, unlimited;
`
