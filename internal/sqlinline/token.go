package sqlinline

// Amounts travel as text so the full uint64 range survives numeric(20,0).

const QEnsureBalance = `--sql 6bd18ba3-f6b5-43c8-913c-079bb542f83b
insert into token_balances(account, balance, updated_at)
values ($1::text, 0, now())
on conflict (account) do nothing;
`

const QSelectBalance = `--sql 6d79ebba-7919-4880-83d8-eeeedcb0ff09
select balance::text
from token_balances
where account = $1::text;
`

const QSelectBalanceForUpdate = `--sql 32edec8d-3f13-4ab8-9464-2a1e10a6d8b5
select balance::text
from token_balances
where account = $1::text
for update;
`

const QUpdateBalance = `--sql d27db93b-e6b1-4a8f-8fc3-b2515e514684
update token_balances
set balance = $2::numeric, updated_at = now()
where account = $1::text;
`

const QUpsertAllowance = `--sql 956a205b-2c1a-48ee-b638-9bd346867a02
insert into token_allowances(owner, spender, amount, updated_at)
values ($1::text, $2::text, $3::numeric, now())
on conflict (owner, spender) do update
set amount = excluded.amount, updated_at = now();
`

const QSelectAllowance = `--sql 2ec7498a-4191-4171-b767-eb2176984d56
select amount::text
from token_allowances
where owner = $1::text and spender = $2::text;
`

const QSelectAllowanceForUpdate = `--sql 14d7d873-a503-4000-898c-73998bb9cfac
select amount::text
from token_allowances
where owner = $1::text and spender = $2::text
for update;
`

const QUpdateAllowance = `--sql 08d339d7-1641-41e7-946a-67cae9b9bc08
update token_allowances
set amount = $3::numeric, updated_at = now()
where owner = $1::text and spender = $2::text;
`
